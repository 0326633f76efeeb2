package openapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/BaSui01/apiflow/types"
)

const schemaResource = "tool.schema.json"

func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return c.Compile(schemaResource)
}

// ValidateArguments checks args against the input schema of the tool.
// Violations are reported by instance location.
func (t *ToolDefinition) ValidateArguments(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	doc, err := normalizeJSON(args)
	if err != nil {
		return types.NewError(types.ErrArgumentValidation, "arguments are not JSON encodable").
			WithCause(err).WithTool(t.Name)
	}
	if err := t.validator.Validate(doc); err != nil {
		msgs := validationMessages(err)
		return types.Errorf(types.ErrArgumentValidation, "invalid arguments for %s: %s", t.Name, strings.Join(msgs, "; ")).
			WithTool(t.Name)
	}
	return nil
}

// ValidateResponse checks a decoded response body against the declared
// response schema for status. Mismatches are returned as warnings.
func (t *ToolDefinition) ValidateResponse(status int, body any) []string {
	resp, ok := t.Operation.Response(status)
	if !ok {
		return nil
	}
	schema, ok := t.responses[resp.Status]
	if !ok {
		return nil
	}
	doc, err := normalizeJSON(body)
	if err != nil {
		return []string{"response is not JSON encodable: " + err.Error()}
	}
	if err := schema.Validate(doc); err != nil {
		msgs := validationMessages(err)
		for i, m := range msgs {
			msgs[i] = "response does not match schema: " + m
		}
		return msgs
	}
	return nil
}

// normalizeJSON converts v into the generic form the validator expects,
// keeping numbers exact.
func normalizeJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func validationMessages(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msg := loc + ": " + e.Error
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, ve.Message)
	}
	return out
}
