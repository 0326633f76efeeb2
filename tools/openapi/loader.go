package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/internal/tlsutil"
	"github.com/BaSui01/apiflow/types"
)

// maxDocumentSize bounds documents fetched over HTTP.
const maxDocumentSize = 32 << 20

// Document is a parsed OpenAPI 3.x document.
type Document struct {
	T     *openapi3.T
	order keyOrder
}

// LoadOptions configures document loading.
type LoadOptions struct {
	// SkipValidation disables structural validation of the document.
	SkipValidation bool
}

// Load parses a JSON or YAML OpenAPI 3.x document.
func Load(ctx context.Context, data []byte, opts LoadOptions) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, types.NewError(types.ErrSpec, "empty OpenAPI document")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	t, err := loader.LoadFromData(data)
	if err != nil {
		return nil, types.NewError(types.ErrSpec, "failed to parse OpenAPI document").WithCause(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(t.OpenAPI), "3.") {
		return nil, types.Errorf(types.ErrSpec, "unsupported OpenAPI version %q, want 3.x", t.OpenAPI)
	}
	if t.Paths == nil {
		t.Paths = openapi3.NewPaths()
	}

	if !opts.SkipValidation {
		if err := t.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, types.NewError(types.ErrSpec, "invalid OpenAPI document").WithCause(err)
		}
	}

	return &Document{T: t, order: indexKeyOrder(data)}, nil
}

// LoadFile loads a document from the local filesystem.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Errorf(types.ErrSpec, "failed to read OpenAPI document %s", path).WithCause(err)
	}
	return Load(ctx, data, opts)
}

// LoadURL fetches and loads a document over HTTP.
func LoadURL(ctx context.Context, client *http.Client, url string, opts LoadOptions) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewError(types.ErrSpec, "invalid OpenAPI document URL").WithCause(err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrSpec, "failed to fetch OpenAPI document").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.Errorf(types.ErrSpec, "failed to fetch OpenAPI document: HTTP %d", resp.StatusCode).
			WithHTTPStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, types.NewError(types.ErrSpec, "failed to read OpenAPI document").WithCause(err)
	}
	if len(data) > maxDocumentSize {
		return nil, types.Errorf(types.ErrSpec, "OpenAPI document exceeds %d bytes", maxDocumentSize)
	}
	return Load(ctx, data, opts)
}

// Title returns info.title.
func (d *Document) Title() string {
	if d.T.Info == nil {
		return ""
	}
	return d.T.Info.Title
}

// Version returns info.version.
func (d *Document) Version() string {
	if d.T.Info == nil {
		return ""
	}
	return d.T.Info.Version
}

// BaseURL returns the first server URL with variable defaults substituted.
func (d *Document) BaseURL() string {
	if len(d.T.Servers) == 0 || d.T.Servers[0] == nil {
		return ""
	}
	s := d.T.Servers[0]
	u := s.URL
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := s.Variables[name]; v != nil {
			u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
		}
	}
	return strings.TrimRight(u, "/")
}

// methodOrder fixes the iteration order of operations within a path item.
var methodOrder = []string{
	http.MethodGet,
	http.MethodPut,
	http.MethodPost,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodHead,
	http.MethodPatch,
	http.MethodTrace,
}

// pathEntry is an operation located in the document, not yet resolved.
type pathEntry struct {
	path   string
	method string
	item   *openapi3.PathItem
	op     *openapi3.Operation
}

func (d *Document) entries() []pathEntry {
	paths := d.T.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []pathEntry
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		for _, method := range methodOrder {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			out = append(out, pathEntry{path: path, method: method, item: item, op: op})
		}
	}
	return out
}

func (e pathEntry) pointer() string {
	return "#/paths/" + escapePointer(e.path) + "/" + strings.ToLower(e.method)
}

func (e pathEntry) String() string {
	return fmt.Sprintf("%s %s", e.method, e.path)
}

// Fetcher loads documents from URLs or local files and keeps them by source.
type Fetcher struct {
	httpClient *http.Client
	opts       LoadOptions
	logger     *zap.Logger
	cache      map[string]*Document
	mu         sync.RWMutex
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout time.Duration
	// HTTPClient replaces the default TLS-hardened client.
	HTTPClient *http.Client
	Options    LoadOptions
}

// NewFetcher creates a document fetcher.
func NewFetcher(config FetcherConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		// 零值 TLSOptions 不读文件，不会失败
		client, _ = tlsutil.NewHTTPClient(tlsutil.ClientConfig{Timeout: timeout})
	}
	return &Fetcher{
		httpClient: client,
		opts:       config.Options,
		logger:     logger.With(zap.String("component", "openapi_loader")),
		cache:      make(map[string]*Document),
	}
}

// Fetch loads the document at source, an http(s) URL or a file path.
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Document, error) {
	f.mu.RLock()
	if doc, ok := f.cache[source]; ok {
		f.mu.RUnlock()
		return doc, nil
	}
	f.mu.RUnlock()

	var (
		doc *Document
		err error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		doc, err = LoadURL(ctx, f.httpClient, source, f.opts)
	} else {
		doc, err = LoadFile(ctx, strings.TrimPrefix(source, "file://"), f.opts)
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache[source] = doc
	f.mu.Unlock()

	f.logger.Info("loaded OpenAPI document",
		zap.String("title", doc.Title()),
		zap.String("version", doc.Version()),
		zap.Int("paths", doc.T.Paths.Len()),
	)
	return doc, nil
}
