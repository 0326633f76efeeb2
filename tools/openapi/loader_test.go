package openapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/apiflow/testutil"
	"github.com/BaSui01/apiflow/testutil/fixtures"
	"github.com/BaSui01/apiflow/types"
)

func loadFixture(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Load(context.Background(), []byte(data), LoadOptions{})
	require.NoError(t, err)
	return doc
}

func TestLoad_JSON(t *testing.T) {
	doc := loadFixture(t, fixtures.PetStoreJSON)

	assert.Equal(t, "Petstore", doc.Title())
	assert.Equal(t, "1.0.0", doc.Version())
	assert.Equal(t, "https://api.example.com/v1", doc.BaseURL())
}

func TestLoad_YAML(t *testing.T) {
	doc := loadFixture(t, fixtures.PagesYAML)

	assert.Equal(t, "Pages API", doc.Title())
	assert.Equal(t, "2022-06-28", doc.Version())
	assert.Equal(t, "https://pages.example.com/v1", doc.BaseURL())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: "   \n"},
		{name: "swagger 2", data: fixtures.Swagger2JSON},
		{name: "malformed", data: `{"openapi": "3.0.3", "info": `},
		{name: "missing info", data: `{"openapi": "3.0.3", "paths": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), []byte(tt.data), LoadOptions{})
			require.Error(t, err)
			assert.Equal(t, types.ErrSpec, types.GetErrorCode(err))
		})
	}
}

func TestLoad_NoServers(t *testing.T) {
	doc := loadFixture(t, fixtures.RecursiveJSON)
	assert.Empty(t, doc.BaseURL())
}

func TestLoadFile(t *testing.T) {
	path := testutil.SpecFile(t, fixtures.PetStoreJSON)

	doc, err := LoadFile(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Petstore", doc.Title())

	_, err = LoadFile(context.Background(), testutil.MissingFile(t, "missing.json"), LoadOptions{})
	require.Error(t, err)
	assert.Equal(t, types.ErrSpec, types.GetErrorCode(err))
}

func TestLoadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.yaml" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(fixtures.PagesYAML))
	}))
	defer server.Close()

	doc, err := LoadURL(context.Background(), server.Client(), server.URL+"/openapi.yaml", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Pages API", doc.Title())

	_, err = LoadURL(context.Background(), server.Client(), server.URL+"/missing", LoadOptions{})
	require.Error(t, err)
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrSpec, e.Code)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
}

func TestFetcher_CachesBySource(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fixtures.PetStoreJSON))
	}))
	defer server.Close()

	f := NewFetcher(FetcherConfig{HTTPClient: server.Client()}, nil)
	first, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_File(t *testing.T) {
	path := testutil.SpecFile(t, fixtures.PagesYAML)

	f := NewFetcher(FetcherConfig{}, nil)
	doc, err := f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "Pages API", doc.Title())
}

func TestDocument_EntriesOrder(t *testing.T) {
	doc := loadFixture(t, fixtures.PetStoreJSON)

	var got []string
	for _, e := range doc.entries() {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{
		"GET /pets",
		"POST /pets",
		"GET /pets/{petId}",
		"DELETE /pets/{petId}",
	}, got)
}
