package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/BaSui01/apiflow/types"
)

// Kind selects how the secret is attached to requests.
type Kind string

const (
	KindNone         Kind = "none"
	KindBearer       Kind = "bearer"
	KindBasic        Kind = "basic"
	KindAPIKeyHeader Kind = "api_key_header"
	KindAPIKeyQuery  Kind = "api_key_query"
	KindCustomHeader Kind = "custom_header"
)

// Placeholder marks where the secret goes in a template.
const Placeholder = "{value}"

// Location is where a rendered pair travels.
type Location string

const (
	InHeader Location = "header"
	InQuery  Location = "query"
)

// Config describes the credential of one upstream API.
type Config struct {
	Kind Kind
	// Name is the header or query parameter name. Bearer and basic default
	// to Authorization.
	Name string
	// Template wraps the secret and must contain Placeholder exactly once.
	Template string
	// Username turns the secret into the password of a basic credential.
	Username string
}

// Pair is one rendered header or query parameter.
type Pair struct {
	In    Location
	Name  string
	Value string
}

// String hides the value.
func (p Pair) String() string {
	return fmt.Sprintf("%s %s=%s", p.In, p.Name, redacted)
}

// GoString hides the value.
func (p Pair) GoString() string {
	return fmt.Sprintf("auth.Pair{In:%q, Name:%q, Value:%q}", p.In, p.Name, redacted)
}

// Renderer holds the pairs rendered for one credential. It is immutable and
// safe for concurrent use.
type Renderer struct {
	kind  Kind
	pairs []Pair
}

// NewRenderer validates cfg and renders secret once.
func NewRenderer(cfg Config, secret Secret) (*Renderer, error) {
	pairs, err := Render(cfg, secret)
	if err != nil {
		return nil, err
	}
	kind := cfg.Kind
	if kind == "" {
		kind = KindNone
	}
	return &Renderer{kind: kind, pairs: pairs}, nil
}

// Kind returns the credential kind.
func (r *Renderer) Kind() Kind { return r.kind }

// Pairs returns a copy of the rendered pairs.
func (r *Renderer) Pairs() []Pair {
	return append([]Pair(nil), r.pairs...)
}

// HeaderNames returns the header names the renderer sets.
func (r *Renderer) HeaderNames() []string {
	var out []string
	for _, p := range r.pairs {
		if p.In == InHeader {
			out = append(out, p.Name)
		}
	}
	return out
}

// Render turns a credential into header or query pairs.
func Render(cfg Config, secret Secret) ([]Pair, error) {
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindBearer, KindBasic, KindAPIKeyHeader, KindAPIKeyQuery, KindCustomHeader:
	default:
		return nil, types.Errorf(types.ErrAuth, "unknown auth kind %q", cfg.Kind)
	}
	if secret.Empty() {
		return nil, types.Errorf(types.ErrAuth, "auth kind %q requires a secret", cfg.Kind)
	}

	switch cfg.Kind {
	case KindBearer:
		return header(cfg.Name, "Authorization", cfg.Template, "Bearer "+Placeholder, secret.Reveal())
	case KindBasic:
		cred, err := basicCredential(cfg.Username, secret.Reveal())
		if err != nil {
			return nil, err
		}
		return header(cfg.Name, "Authorization", cfg.Template, "Basic "+Placeholder, cred)
	case KindAPIKeyHeader:
		return header(cfg.Name, "", cfg.Template, Placeholder, secret.Reveal())
	case KindCustomHeader:
		if cfg.Template == "" {
			return nil, types.NewError(types.ErrAuth, "custom_header auth requires a template")
		}
		return header(cfg.Name, "", cfg.Template, "", secret.Reveal())
	default: // KindAPIKeyQuery
		if strings.TrimSpace(cfg.Name) == "" {
			return nil, types.NewError(types.ErrAuth, "api_key_query auth requires a parameter name")
		}
		value, err := fill(cfg.Template, Placeholder, secret.Reveal())
		if err != nil {
			return nil, err
		}
		return []Pair{{In: InQuery, Name: cfg.Name, Value: value}}, nil
	}
}

func header(name, defaultName, template, defaultTemplate, secret string) ([]Pair, error) {
	if name == "" {
		name = defaultName
	}
	if name == "" {
		return nil, types.NewError(types.ErrAuth, "header auth requires a header name")
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return nil, types.Errorf(types.ErrAuth, "invalid auth header name %q", name)
	}
	value, err := fill(template, defaultTemplate, secret)
	if err != nil {
		return nil, err
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return nil, types.Errorf(types.ErrAuth, "rendered value of header %q is not a valid header value", name)
	}
	return []Pair{{In: InHeader, Name: http.CanonicalHeaderKey(name), Value: value}}, nil
}

// fill substitutes the secret into the template.
func fill(template, defaultTemplate, secret string) (string, error) {
	if template == "" {
		template = defaultTemplate
	}
	if n := strings.Count(template, Placeholder); n != 1 {
		return "", types.Errorf(types.ErrAuth, "auth template must contain %s exactly once, found %d", Placeholder, n)
	}
	return strings.Replace(template, Placeholder, secret, 1), nil
}

func basicCredential(username, secret string) (string, error) {
	if username == "" {
		var ok bool
		username, secret, ok = strings.Cut(secret, ":")
		if !ok || username == "" {
			return "", types.NewError(types.ErrAuth, "basic auth secret must be username:password")
		}
	}
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + secret)), nil
}
