package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders_CaseInsensitive(t *testing.T) {
	var h Headers
	h.Add("Accept", "application/json")
	h.Add("X-Trace", "1")
	h.Add("x-trace", "2")

	assert.Equal(t, "1", h.HTTP().Get("X-TRACE"))
	assert.Equal(t, []string{"1", "2"}, h.HTTP().Values("X-Trace"))

	h.Set("x-Trace", "3")
	assert.Equal(t, Headers{{Name: "Accept", Value: "application/json"}, {Name: "x-Trace", Value: "3"}}, h)

	h.Set("Authorization", "Bearer t")
	assert.Equal(t, "Authorization", h[2].Name)

	hh := h.HTTP()
	assert.Equal(t, "3", hh.Get("X-Trace"))
	assert.Equal(t, "application/json", hh.Get("Accept"))
}

func TestHeaders_CloneIsIndependent(t *testing.T) {
	h := Headers{{Name: "A", Value: "1"}}
	c := h.Clone()
	c.Set("A", "2")
	assert.Equal(t, "1", h.HTTP().Get("A"))
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders(`{"X-Tenant": "acme", "Notion-Version": "2022-06-28"}`)
	require.NoError(t, err)
	assert.Equal(t, Headers{
		{Name: "Notion-Version", Value: "2022-06-28"},
		{Name: "X-Tenant", Value: "acme"},
	}, h)

	h, err = ParseHeaders("  ")
	require.NoError(t, err)
	assert.Nil(t, h)

	for _, raw := range []string{`[1]`, `{"X-A": 1}`, `{"bad name": "x"}`, `{"X-A": "a\nb"}`} {
		_, err := ParseHeaders(raw)
		assert.Error(t, err, raw)
	}
}
