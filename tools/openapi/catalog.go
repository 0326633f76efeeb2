package openapi

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/types"
)

// Catalog is the immutable set of tools compiled from one document. It is
// safe for concurrent use.
type Catalog struct {
	title   string
	version string
	graph   *Graph
	tools   []*ToolDefinition
	byName  map[string]*ToolDefinition
}

// Compile resolves the document and compiles every operation into a tool.
// Operations are visited in sorted path order, then by HTTP method.
func Compile(doc *Document, opts CompileOptions, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "tool_compiler"))

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = doc.BaseURL()
	}
	c, err := newCompiler(opts, baseURL, logger)
	if err != nil {
		return nil, err
	}

	graph, err := Resolve(doc, logger)
	if err != nil {
		return nil, err
	}
	ops, err := doc.operations(graph)
	if err != nil {
		return nil, err
	}

	cat := &Catalog{
		title:   doc.Title(),
		version: doc.Version(),
		graph:   graph,
		byName:  make(map[string]*ToolDefinition, len(ops)),
	}
	for _, op := range ops {
		if !c.included(op) {
			logger.Debug("operation filtered by tags", zap.String("operation", op.Method+" "+op.Path))
			continue
		}
		def, err := c.compile(op)
		if err != nil {
			return nil, err
		}
		if prev, dup := cat.byName[def.Name]; dup {
			return nil, types.Errorf(types.ErrToolCompilation, "duplicate tool name %q", def.Name).
				WithCause(fmt.Errorf("declared by %s %s and %s %s",
					prev.Method(), prev.Path(), def.Method(), def.Path())).
				WithTool(def.Name)
		}
		for _, col := range def.Collisions {
			logger.Warn("parameter name collision, dropped lower precedence location",
				zap.String("tool", def.Name),
				zap.String("name", col.Name),
				zap.String("kept", string(col.Kept)),
				zap.String("dropped", string(col.Dropped)),
			)
		}
		cat.byName[def.Name] = def
		cat.tools = append(cat.tools, def)
	}

	logger.Info("tool catalog compiled",
		zap.String("title", cat.title),
		zap.Int("tools", len(cat.tools)),
		zap.Int("schemas", len(graph.names)),
		zap.Strings("recursive_schemas", graph.Cycles()),
	)
	return cat, nil
}

// Lookup returns the tool with the given name.
func (c *Catalog) Lookup(name string) (*ToolDefinition, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Definitions returns the compiled tools in catalog order.
func (c *Catalog) Definitions() []*ToolDefinition {
	return append([]*ToolDefinition(nil), c.tools...)
}

// Tools returns the public listing of every tool.
func (c *Catalog) Tools() []types.ToolSchema {
	out := make([]types.ToolSchema, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.Schema()
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int { return len(c.tools) }

// Graph returns the schema graph the catalog was compiled from.
func (c *Catalog) Graph() *Graph { return c.graph }

// Title returns the document title.
func (c *Catalog) Title() string { return c.title }

// Version returns the document version.
func (c *Catalog) Version() string { return c.version }

// MarshalJSON writes the catalog listing.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Title   string             `json:"title,omitempty"`
		Version string             `json:"version,omitempty"`
		Tools   []types.ToolSchema `json:"tools"`
	}{c.title, c.version, c.Tools()})
}
