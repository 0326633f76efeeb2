package openapi

import (
	"strings"
)

// Encoding is how a request body is written on the wire.
type Encoding string

const (
	EncodingNone      Encoding = "none"
	EncodingJSON      Encoding = "json"
	EncodingMultipart Encoding = "multipart"
	EncodingForm      Encoding = "form"
	EncodingRaw       Encoding = "raw"
)

const (
	mediaMultipart = "multipart/form-data"
	mediaForm      = "application/x-www-form-urlencoded"
)

// UploadPlan is the body encoding chosen for an operation.
type UploadPlan struct {
	Encoding  Encoding
	MediaType string
	Schema    *Node
	// RequiresMultipart is set when the body is multipart and carries at
	// least one file field.
	RequiresMultipart bool
	// FileFields lists binary properties in declaration order.
	FileFields []string
}

// DetectUpload picks the body encoding of a request body. multipart/form-data
// wins over every other declared content type, then JSON, then urlencoded
// forms; anything else is sent raw.
func DetectUpload(body *RequestBody) UploadPlan {
	if body == nil || len(body.Content) == 0 {
		return UploadPlan{Encoding: EncodingNone}
	}

	if m, ok := findMedia(body, func(base string) bool { return base == mediaMultipart }); ok {
		plan := UploadPlan{Encoding: EncodingMultipart, MediaType: mediaMultipart, Schema: m.Schema}
		plan.FileFields = fileFields(m.Schema)
		plan.RequiresMultipart = len(plan.FileFields) > 0
		return plan
	}
	if m, ok := findMedia(body, func(base string) bool { return base == "application/json" }); ok {
		return UploadPlan{Encoding: EncodingJSON, MediaType: "application/json", Schema: m.Schema}
	}
	if m, ok := findMedia(body, isJSONMedia); ok {
		return UploadPlan{Encoding: EncodingJSON, MediaType: mediaBase(m.Type), Schema: m.Schema}
	}
	if m, ok := findMedia(body, func(base string) bool { return base == mediaForm }); ok {
		return UploadPlan{Encoding: EncodingForm, MediaType: mediaForm, Schema: m.Schema}
	}

	m := body.Content[0]
	plan := UploadPlan{Encoding: EncodingRaw, MediaType: rawMediaType(m.Type), Schema: m.Schema}
	if m.Schema.IsBinary() || (m.Schema == nil && !strings.HasPrefix(mediaBase(m.Type), "text/")) {
		plan.FileFields = []string{bodyProperty}
	}
	return plan
}

func findMedia(body *RequestBody, match func(base string) bool) (*MediaType, bool) {
	for _, m := range body.Content {
		if match(mediaBase(m.Type)) {
			return m, true
		}
	}
	return nil, false
}

// fileFields lists properties holding binary payloads, in declaration order.
func fileFields(schema *Node) []string {
	if !schema.IsObject() {
		return nil
	}
	var out []string
	for _, p := range schema.Properties {
		if p.Schema.IsFile() {
			out = append(out, p.Name)
		}
	}
	return out
}

// rawMediaType replaces wildcards with a concrete type.
func rawMediaType(mt string) string {
	base := mediaBase(mt)
	switch {
	case base == "*/*" || base == "application/*":
		return "application/octet-stream"
	case base == "text/*":
		return "text/plain"
	}
	return base
}
