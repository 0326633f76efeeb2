package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/apiflow/testutil/fixtures"
)

// Compiling the same document twice yields a byte-identical catalog.
func TestProperty_CompileIsDeterministic(t *testing.T) {
	docs := []string{fixtures.PetStoreJSON, fixtures.PagesYAML, fixtures.RecursiveJSON, fixtures.UploadJSON, fixtures.CollisionJSON, fixtures.CompositionJSON}

	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SampledFrom(docs).Draw(rt, "doc")
		prefix := rapid.StringMatching(`[a-z]{0,6}_?`).Draw(rt, "prefix")
		maxLen := rapid.IntRange(16, 80).Draw(rt, "maxLen")
		opts := CompileOptions{Prefix: prefix, MaxNameLength: maxLen}

		first := compileListing(rt, data, opts)
		second := compileListing(rt, data, opts)
		if first != second {
			rt.Fatalf("catalog differs between compilations:\n%s\n%s", first, second)
		}
	})
}

func compileListing(rt *rapid.T, data string, opts CompileOptions) string {
	doc, err := Load(context.Background(), []byte(data), LoadOptions{})
	if err != nil {
		rt.Fatalf("load: %v", err)
	}
	cat, err := Compile(doc, opts, nil)
	if err != nil {
		rt.Fatalf("compile: %v", err)
	}
	raw, err := json.Marshal(cat)
	if err != nil {
		rt.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

// Generated documents with any number of object properties keep them in
// declaration order, and every binary property becomes a file field.
func TestProperty_UploadFieldsFollowDeclarationOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		var (
			props []string
			want  []string
			all   []string
		)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("f%d_%s", i, rapid.StringMatching(`[a-z]{1,4}`).Draw(rt, "suffix"))
			all = append(all, name)
			if rapid.Bool().Draw(rt, "binary") {
				props = append(props, fmt.Sprintf(`%q: {"type": "string", "format": "binary"}`, name))
				want = append(want, name)
			} else {
				props = append(props, fmt.Sprintf(`%q: {"type": "string"}`, name))
			}
		}
		data := fmt.Sprintf(`{"openapi": "3.0.3", "info": {"title": "gen", "version": "1"},
		  "paths": {"/up": {"post": {"operationId": "up",
		    "requestBody": {"content": {"multipart/form-data": {"schema": {"type": "object", "properties": {%s}}}}},
		    "responses": {"200": {"description": "ok"}}}}}}`, strings.Join(props, ","))

		doc, err := Load(context.Background(), []byte(data), LoadOptions{})
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		cat, err := Compile(doc, CompileOptions{}, nil)
		if err != nil {
			rt.Fatalf("compile: %v", err)
		}
		def, _ := cat.Lookup("up")

		if (len(want) > 0) != def.RequiresMultipart {
			rt.Fatalf("RequiresMultipart = %v with file fields %v", def.RequiresMultipart, want)
		}
		if strings.Join(def.FileFields, ",") != strings.Join(want, ",") {
			rt.Fatalf("file fields %v, want %v", def.FileFields, want)
		}
		var bound []string
		for _, b := range def.Bindings {
			bound = append(bound, b.Property)
		}
		if strings.Join(bound, ",") != strings.Join(all, ",") {
			rt.Fatalf("bindings %v, want %v", bound, all)
		}
	})
}

func TestProperty_LimitNameBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("limited names fit and stay valid UTF-8", prop.ForAll(
		func(name string, maxLen int) bool {
			got := limitName(name, maxLen)
			if len(got) > maxLen || !utf8.ValidString(got) {
				return false
			}
			if len(name) <= maxLen {
				return got == name
			}
			return got == limitName(name, maxLen)
		},
		gen.AnyString(),
		gen.IntRange(10, 64),
	))

	properties.TestingRun(t)
}

func TestLimitName_Distinct(t *testing.T) {
	base := strings.Repeat("x", 70)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := limitName(fmt.Sprintf("%s%d", base, i), 64)
		require.False(t, seen[n], "collision for %d", i)
		seen[n] = true
	}
}
