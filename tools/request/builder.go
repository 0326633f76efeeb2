package request

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/BaSui01/apiflow/tools/auth"
	"github.com/BaSui01/apiflow/tools/openapi"
	"github.com/BaSui01/apiflow/types"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "apiflow"

// Options configures a Builder.
type Options struct {
	UserAgent string
	// Headers are sent with every request, after Accept and User-Agent.
	Headers Headers
}

// Builder turns validated arguments into request specs. It holds no mutable
// state and is safe for concurrent use.
type Builder struct {
	userAgent string
	headers   Headers
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Builder{userAgent: ua, headers: opts.Headers.Clone()}
}

// Spec is a fully built HTTP request that has not been sent.
type Spec struct {
	Method  string
	URL     *url.URL
	Headers Headers
	Body    Body
}

// Target returns the method and URL without its query, which may carry
// credentials.
func (s *Spec) Target() string {
	u := *s.URL
	u.RawQuery = ""
	u.User = nil
	return s.Method + " " + u.String()
}

// Build assembles the request for def from args and rendered auth pairs.
// Neither def nor args are modified.
func (b *Builder) Build(def *openapi.ToolDefinition, args map[string]any, pairs []auth.Pair) (*Spec, error) {
	if def.BaseURL == "" {
		return nil, types.Errorf(types.ErrSpec, "tool %q has no server URL; configure a base URL", def.Name).WithTool(def.Name)
	}

	used := make(map[string]bool, len(args))

	// (1) path
	path, err := substitutePath(def, args, used)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(def.BaseURL, "/") + path)
	if err != nil {
		return nil, types.Errorf(types.ErrSpec, "invalid request URL for tool %q", def.Name).WithCause(err).WithTool(def.Name)
	}

	// (2) query
	q := u.Query()
	for _, bind := range def.Bindings {
		if bind.In != openapi.LocationQuery {
			continue
		}
		if v, ok := args[bind.Property]; ok {
			used[bind.Property] = true
			addQuery(q, bind, v)
		}
	}
	for _, bind := range def.Bindings {
		if bind.In == openapi.LocationHeader || bind.In == openapi.LocationBody {
			used[bind.Property] = true
		}
	}
	for _, name := range sortedKeys(args) {
		if !used[name] {
			addField(q, name, args[name])
		}
	}

	// (3) headers and auth
	headers := make(Headers, 0, len(b.headers)+4)
	headers.Add("Accept", "application/json")
	headers.Add("User-Agent", b.userAgent)
	for _, h := range b.headers {
		headers.Set(h.Name, h.Value)
	}
	for _, bind := range def.Bindings {
		if bind.In != openapi.LocationHeader {
			continue
		}
		v, ok := args[bind.Property]
		if !ok || v == nil {
			continue
		}
		value := formatScalar(v)
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, types.Errorf(types.ErrArgumentValidation, "header argument %q is not a valid header value", bind.Property).
				WithTool(def.Name)
		}
		headers.Set(bind.Name, value)
	}
	for _, p := range pairs {
		switch p.In {
		case auth.InQuery:
			q.Set(p.Name, p.Value)
		default:
			headers.Set(p.Name, p.Value)
		}
	}
	u.RawQuery = q.Encode()

	// (4) body
	body, err := buildBody(def, args)
	if err != nil {
		if e, ok := types.AsError(err); ok && e.Tool == "" {
			e.Tool = def.Name
		}
		return nil, err
	}

	return &Spec{
		Method:  def.Method(),
		URL:     u,
		Headers: headers,
		Body:    body,
	}, nil
}

// substitutePath replaces every {token} with its escaped argument.
func substitutePath(def *openapi.ToolDefinition, args map[string]any, used map[string]bool) (string, error) {
	path := def.Path()
	for _, token := range def.Operation.PathTokens() {
		name := token
		if bind, ok := pathBinding(def, token); ok {
			name = bind.Property
		}
		v, ok := args[name]
		if !ok || v == nil || formatScalar(v) == "" {
			return "", types.Errorf(types.ErrArgumentValidation, "missing value for path parameter %q", token).
				WithTool(def.Name)
		}
		used[name] = true
		path = strings.Replace(path, "{"+token+"}", pathValue(v), 1)
	}
	return path, nil
}

func pathBinding(def *openapi.ToolDefinition, token string) (openapi.Binding, bool) {
	for _, b := range def.Bindings {
		if b.In == openapi.LocationPath && b.Name == token {
			return b, true
		}
	}
	return openapi.Binding{}, false
}

func buildBody(def *openapi.ToolDefinition, args map[string]any) (Body, error) {
	var fields []openapi.Binding
	var whole *openapi.Binding
	for i, b := range def.Bindings {
		if b.In != openapi.LocationBody {
			continue
		}
		if b.Whole {
			whole = &def.Bindings[i]
			continue
		}
		if _, ok := args[b.Property]; ok {
			fields = append(fields, b)
		}
	}
	if whole != nil {
		if _, ok := args[whole.Property]; !ok {
			whole = nil
		}
	}
	if whole == nil && len(fields) == 0 {
		return Body{Kind: BodyNone}, nil
	}

	switch def.Encoding {
	case openapi.EncodingMultipart:
		return multipartBody(fields, whole, args)
	case openapi.EncodingForm:
		return formBody(fields, whole, args), nil
	case openapi.EncodingRaw:
		return rawBody(def, whole, args)
	case openapi.EncodingJSON:
		return jsonBody(def, fields, whole, args)
	default:
		return Body{Kind: BodyNone}, nil
	}
}

func jsonBody(def *openapi.ToolDefinition, fields []openapi.Binding, whole *openapi.Binding, args map[string]any) (Body, error) {
	var doc any
	if whole != nil {
		doc = args[whole.Property]
	} else {
		m := make(map[string]any, len(fields))
		for _, b := range fields {
			m[b.Name] = args[b.Property]
		}
		doc = m
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return Body{}, types.NewError(types.ErrArgumentValidation, "request body is not JSON encodable").WithCause(err)
	}
	return Body{Kind: BodyJSON, ContentType: mediaType(def, "application/json"), Data: data}, nil
}

func formBody(fields []openapi.Binding, whole *openapi.Binding, args map[string]any) Body {
	form := url.Values{}
	if whole != nil {
		if m, ok := args[whole.Property].(map[string]any); ok {
			for _, k := range sortedKeys(m) {
				addField(form, k, m[k])
			}
		} else {
			addField(form, whole.Name, args[whole.Property])
		}
	}
	for _, b := range fields {
		addField(form, b.Name, args[b.Property])
	}
	return Body{
		Kind:        BodyForm,
		ContentType: "application/x-www-form-urlencoded",
		Data:        []byte(form.Encode()),
	}
}

func multipartBody(fields []openapi.Binding, whole *openapi.Binding, args map[string]any) (Body, error) {
	if whole != nil {
		if m, ok := args[whole.Property].(map[string]any); ok {
			return multipartObject(whole, m)
		}
		fields = append(fields, *whole)
	}
	var parts []Part
	for _, b := range fields {
		v := args[b.Property]
		if v == nil {
			continue
		}
		if !b.File {
			parts = append(parts, Part{Name: b.Name, Value: formatScalar(v)})
			continue
		}
		sources, err := fileSources(b.Property, v)
		if err != nil {
			return Body{}, err
		}
		for _, src := range sources {
			parts = append(parts, Part{Name: b.Name, File: src})
		}
	}
	return Body{Kind: BodyMultipart, Parts: parts}, nil
}

// multipartObject writes each member of a whole object body as one part.
func multipartObject(whole *openapi.Binding, m map[string]any) (Body, error) {
	files := make(map[string]bool, len(whole.Files))
	for _, f := range whole.Files {
		files[f] = true
	}
	var parts []Part
	for _, k := range sortedKeys(m) {
		v := m[k]
		if v == nil {
			continue
		}
		if !files[k] {
			parts = append(parts, Part{Name: k, Value: formatScalar(v)})
			continue
		}
		sources, err := fileSources(whole.Property+"."+k, v)
		if err != nil {
			return Body{}, err
		}
		for _, src := range sources {
			parts = append(parts, Part{Name: k, File: src})
		}
	}
	return Body{Kind: BodyMultipart, Parts: parts}, nil
}

func rawBody(def *openapi.ToolDefinition, whole *openapi.Binding, args map[string]any) (Body, error) {
	if whole == nil {
		return Body{Kind: BodyNone}, nil
	}
	v := args[whole.Property]
	ct := mediaType(def, "application/octet-stream")
	if whole.File {
		src, err := statFile(whole.Property, v)
		if err != nil {
			return Body{}, err
		}
		return Body{Kind: BodyRaw, ContentType: ct, File: src}, nil
	}
	if s, ok := v.(string); ok {
		return Body{Kind: BodyRaw, ContentType: ct, Data: []byte(s)}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Body{}, types.NewError(types.ErrArgumentValidation, "request body is not encodable").WithCause(err)
	}
	return Body{Kind: BodyRaw, ContentType: ct, Data: data}, nil
}

func mediaType(def *openapi.ToolDefinition, fallback string) string {
	if def.MediaType != "" {
		return def.MediaType
	}
	return fallback
}

// NewRequest creates the HTTP request. Multipart bodies start streaming when
// the transport reads them; the caller must send or close the request body.
func (s *Spec) NewRequest(ctx context.Context) (*http.Request, error) {
	body, contentType, length := s.Body.open(ctx)

	var reader io.Reader
	if body != nil {
		reader = body
	}
	req, err := http.NewRequestWithContext(ctx, s.Method, s.URL.String(), reader)
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, types.NewError(types.ErrInternalError, "failed to create request").WithCause(err)
	}
	req.Header = s.Headers.HTTP()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if body != nil {
		req.ContentLength = length
	}
	return req, nil
}

// Fingerprint hashes everything that identifies the request, credentials
// included, so equal fingerprints only occur for equal requests.
func (s *Spec) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s %s\n", s.Method, s.URL.String())

	names := make([]string, 0, len(s.Headers))
	for _, hd := range s.Headers {
		names = append(names, strings.ToLower(hd.Name)+": "+hd.Value)
	}
	sort.Strings(names)
	for _, line := range names {
		fmt.Fprintln(h, line)
	}

	fmt.Fprintf(h, "%s %s\n", s.Body.Kind, s.Body.ContentType)
	_, _ = h.Write(s.Body.Data)
	for _, p := range s.Body.Parts {
		if p.File != nil {
			fmt.Fprintf(h, "\npart %s file %s %d", p.Name, p.File.Path, p.File.Size)
		} else {
			fmt.Fprintf(h, "\npart %s=%s", p.Name, p.Value)
		}
	}
	if s.Body.File != nil {
		fmt.Fprintf(h, "\nfile %s %d", s.Body.File.Path, s.Body.File.Size)
	}
	return hex.EncodeToString(h.Sum(nil))
}
