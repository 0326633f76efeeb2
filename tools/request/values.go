package request

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/BaSui01/apiflow/tools/openapi"
)

// formatScalar renders an argument as parameter text. Objects and arrays
// become JSON.
func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(raw)
	}
}

// addQuery writes one query argument according to its style.
func addQuery(q url.Values, b openapi.Binding, v any) {
	switch x := v.(type) {
	case nil:
		return
	case []any:
		if b.Explode {
			for _, item := range x {
				q.Add(b.Name, formatScalar(item))
			}
			return
		}
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = formatScalar(item)
		}
		q.Add(b.Name, strings.Join(items, delimiter(b.Style)))
	case map[string]any:
		if b.Style == "deepObject" {
			for _, k := range sortedKeys(x) {
				q.Add(b.Name+"["+k+"]", formatScalar(x[k]))
			}
			return
		}
		q.Add(b.Name, formatScalar(x))
	default:
		q.Add(b.Name, formatScalar(x))
	}
}

func delimiter(style string) string {
	switch style {
	case "spaceDelimited":
		return " "
	case "pipeDelimited":
		return "|"
	default:
		return ","
	}
}

// addField writes a form or unbound argument, repeating keys for arrays.
func addField(q url.Values, name string, v any) {
	switch x := v.(type) {
	case nil:
		return
	case []any:
		for _, item := range x {
			q.Add(name, formatScalar(item))
		}
	default:
		q.Add(name, formatScalar(x))
	}
}

// pathValue renders a path argument; arrays are comma-joined.
func pathValue(v any) string {
	if items, ok := v.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = url.PathEscape(formatScalar(item))
		}
		return strings.Join(parts, ",")
	}
	return url.PathEscape(formatScalar(v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
