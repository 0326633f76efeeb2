package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/types"
)

const (
	// bodyProperty carries a request body that is not an object with properties.
	bodyProperty          = "body"
	fileDescriptionSuffix = "(absolute paths to local files)"
)

// DefaultPrecedence binds a parameter name to the first location that declares it.
var DefaultPrecedence = []Location{LocationPath, LocationQuery, LocationHeader, LocationBody}

// transportHeaders are set by the engine and never exposed as tool arguments.
var transportHeaders = []string{"Authorization", "Accept", "Content-Type", "Content-Length", "User-Agent", "Host"}

// CompileOptions configures tool compilation.
type CompileOptions struct {
	// BaseURL overrides the first server URL of the document.
	BaseURL     string
	Prefix      string
	IncludeTags []string
	ExcludeTags []string
	// Precedence orders parameter locations for name collisions.
	Precedence []Location
	// MaxNameLength bounds tool names; 0 uses DefaultMaxNameLength, <0 disables.
	MaxNameLength int
	// ReservedHeaders are rendered by the auth layer and hidden from callers.
	ReservedHeaders []string
}

// Binding maps an input property to its place in the HTTP request.
type Binding struct {
	Property string
	In       Location
	// Name is the wire name of the parameter or body field.
	Name    string
	Style   string
	Explode bool
	File    bool
	// Whole marks the single property carrying the entire request body.
	Whole bool
	// Files lists the members of a whole object body sent as file parts.
	Files []string
}

// Collision records a parameter dropped because a higher-priority location
// declared the same name.
type Collision struct {
	Name    string
	Kept    Location
	Dropped Location
}

// ToolDefinition is one compiled operation. It is immutable once the Catalog
// is built.
type ToolDefinition struct {
	Name              string
	Description       string
	InputSchema       *types.JSONSchema
	RequiresMultipart bool
	FileFields        []string
	Encoding          Encoding
	MediaType         string
	BaseURL           string
	Bindings          []Binding
	Collisions        []Collision
	Operation         *Operation

	schemaJSON json.RawMessage
	validator  *jsonschema.Schema
	responses  map[string]*jsonschema.Schema
}

// Method returns the HTTP method of the operation.
func (t *ToolDefinition) Method() string { return t.Operation.Method }

// Path returns the path template of the operation.
func (t *ToolDefinition) Path() string { return t.Operation.Path }

// Binding returns the binding of an input property.
func (t *ToolDefinition) Binding(property string) (Binding, bool) {
	for _, b := range t.Bindings {
		if b.Property == property {
			return b, true
		}
	}
	return Binding{}, false
}

// Schema returns the public listing entry of the tool.
func (t *ToolDefinition) Schema() types.ToolSchema {
	return types.ToolSchema{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  append(json.RawMessage(nil), t.schemaJSON...),
	}
}

// candidate is a property contributed by one parameter location.
type candidate struct {
	binding  Binding
	schema   *types.JSONSchema
	required bool
}

type compiler struct {
	opts     CompileOptions
	ranks    map[Location]int
	reserved map[string]bool
	baseURL  string
	logger   *zap.Logger
}

func newCompiler(opts CompileOptions, baseURL string, logger *zap.Logger) (*compiler, error) {
	ranks, err := precedenceRanks(opts.Precedence)
	if err != nil {
		return nil, err
	}
	if opts.MaxNameLength == 0 {
		opts.MaxNameLength = DefaultMaxNameLength
	}
	reserved := make(map[string]bool)
	for _, h := range transportHeaders {
		reserved[strings.ToLower(h)] = true
	}
	for _, h := range opts.ReservedHeaders {
		reserved[strings.ToLower(h)] = true
	}
	return &compiler{
		opts:     opts,
		ranks:    ranks,
		reserved: reserved,
		baseURL:  baseURL,
		logger:   logger,
	}, nil
}

func precedenceRanks(order []Location) (map[Location]int, error) {
	if len(order) == 0 {
		order = DefaultPrecedence
	}
	ranks := make(map[Location]int, len(order))
	for i, loc := range order {
		switch loc {
		case LocationPath, LocationQuery, LocationHeader, LocationBody:
		default:
			return nil, types.Errorf(types.ErrToolCompilation, "unknown parameter location %q in precedence", loc)
		}
		if _, dup := ranks[loc]; dup {
			return nil, types.Errorf(types.ErrToolCompilation, "parameter location %q listed twice in precedence", loc)
		}
		ranks[loc] = i
	}
	if len(ranks) != len(DefaultPrecedence) {
		return nil, types.Errorf(types.ErrToolCompilation, "precedence must list path, query, header and body")
	}
	return ranks, nil
}

func (c *compiler) compile(op *Operation) (*ToolDefinition, error) {
	plan := DetectUpload(op.RequestBody)
	def := &ToolDefinition{
		Name:        toolName(op, c.opts.Prefix, c.opts.MaxNameLength),
		Description: describe(op),
		Encoding:    plan.Encoding,
		MediaType:   plan.MediaType,
		BaseURL:     c.baseURL,
		Operation:   op,
	}

	em := newEmitter()
	cands := c.parameterCandidates(em, op)
	cands = append(cands, bodyCandidates(em, op.RequestBody, plan)...)

	sort.SliceStable(cands, func(i, j int) bool {
		return c.ranks[cands[i].binding.In] < c.ranks[cands[j].binding.In]
	})

	schema := types.NewObjectSchema()
	kept := make(map[string]Location, len(cands))
	for _, cand := range cands {
		name := cand.binding.Property
		if loc, ok := kept[name]; ok {
			def.Collisions = append(def.Collisions, Collision{Name: name, Kept: loc, Dropped: cand.binding.In})
			continue
		}
		kept[name] = cand.binding.In
		schema.AddProperty(name, cand.schema)
		if cand.required {
			schema.AddRequired(name)
		}
		def.Bindings = append(def.Bindings, cand.binding)
		if cand.binding.File || len(cand.binding.Files) > 0 {
			def.FileFields = append(def.FileFields, name)
		}
	}
	def.RequiresMultipart = def.Encoding == EncodingMultipart && len(def.FileFields) > 0
	def.InputSchema = em.root(schema)

	raw, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, types.Errorf(types.ErrToolCompilation, "failed to encode input schema of tool %q", def.Name).WithCause(err)
	}
	def.schemaJSON = raw

	if def.validator, err = compileSchema(raw); err != nil {
		return nil, types.Errorf(types.ErrToolCompilation, "unsupported schema shape in tool %q", def.Name).
			WithCause(err).WithTool(def.Name)
	}
	def.responses = c.responseValidators(def)
	return def, nil
}

func (c *compiler) parameterCandidates(em *emitter, op *Operation) []candidate {
	var out []candidate
	declaredPath := make(map[string]bool)

	for _, p := range op.Parameters {
		b := Binding{Property: p.Name, In: p.In, Name: p.Name, Style: p.Style}
		switch p.In {
		case LocationPath:
			declaredPath[p.Name] = true
			b.Explode = p.Explode != nil && *p.Explode
			out = append(out, candidate{binding: b, schema: parameterSchema(em, p), required: true})
		case LocationQuery:
			b.Explode = p.Explode == nil || *p.Explode
			if p.Style != "" && p.Style != "form" && p.Explode == nil {
				b.Explode = false
			}
			out = append(out, candidate{binding: b, schema: parameterSchema(em, p), required: p.Required})
		case LocationHeader:
			if c.reserved[strings.ToLower(p.Name)] {
				continue
			}
			out = append(out, candidate{binding: b, schema: parameterSchema(em, p)})
		default:
			c.logger.Debug("parameter not exposed",
				zap.String("operation", op.Method+" "+op.Path),
				zap.String("name", p.Name),
				zap.String("in", string(p.In)),
			)
		}
	}

	for _, token := range op.PathTokens() {
		if declaredPath[token] {
			continue
		}
		c.logger.Warn("path token has no declared parameter, exposing it as a string",
			zap.String("operation", op.Method+" "+op.Path),
			zap.String("name", token),
		)
		out = append(out, candidate{
			binding:  Binding{Property: token, In: LocationPath, Name: token},
			schema:   types.NewStringSchema(),
			required: true,
		})
	}
	return out
}

func parameterSchema(em *emitter, p *Parameter) *types.JSONSchema {
	var s *types.JSONSchema
	if p.Schema == nil {
		s = types.NewStringSchema()
	} else {
		s = em.emit(p.Schema)
	}
	if s.Description == "" {
		s.Description = p.Description
	}
	return s
}

func bodyCandidates(em *emitter, body *RequestBody, plan UploadPlan) []candidate {
	if plan.Encoding == EncodingNone {
		return nil
	}
	files := make(map[string]bool, len(plan.FileFields))
	for _, f := range plan.FileFields {
		files[f] = true
	}

	// Composition applies to the body as a whole, so a composite body stays
	// one argument and keeps its allOf/oneOf/anyOf.
	node := plan.Schema
	if plan.Encoding != EncodingRaw && node.IsObject() && len(node.Properties) > 0 && !node.IsComposite() {
		out := make([]candidate, 0, len(node.Properties))
		for _, p := range node.Properties {
			var s *types.JSONSchema
			if files[p.Name] {
				s = fileSchema(p.Schema)
			} else {
				s = em.emit(p.Schema)
			}
			out = append(out, candidate{
				binding:  Binding{Property: p.Name, In: LocationBody, Name: p.Name, File: files[p.Name]},
				schema:   s,
				required: node.IsRequired(p.Name),
			})
		}
		return out
	}

	binding := Binding{Property: bodyProperty, In: LocationBody, Name: bodyProperty, Whole: true, File: files[bodyProperty]}
	var s *types.JSONSchema
	switch {
	case binding.File:
		s = fileSchema(node)
	case plan.Encoding == EncodingMultipart && len(plan.FileFields) > 0:
		s = em.body(node)
		for _, f := range plan.FileFields {
			member, _ := node.Property(f)
			s.Properties[f] = fileSchema(member)
		}
		binding.Files = append([]string(nil), plan.FileFields...)
	default:
		s = em.emit(node)
	}
	if s.Description == "" {
		s.Description = body.Description
	}
	return []candidate{{binding: binding, schema: s, required: body.Required}}
}

// fileSchema describes a file argument: a path string, or an array of them.
func fileSchema(n *Node) *types.JSONSchema {
	path := func(desc string) *types.JSONSchema {
		return &types.JSONSchema{
			Type:        types.SchemaTypeString,
			Format:      types.FormatURIReference,
			Description: strings.TrimSpace(desc + " " + fileDescriptionSuffix),
		}
	}
	if n.IsArray() {
		s := types.NewArraySchema(path(n.Items.Description))
		s.Description = n.Description
		if n.MinItems > 0 {
			s.MinItems = intPtr(n.MinItems)
		}
		if n.MaxItems != nil {
			s.MaxItems = intPtr(*n.MaxItems)
		}
		return s
	}
	if n == nil {
		return path("")
	}
	return path(n.Description)
}

// describe builds the tool description with the declared error responses.
func describe(op *Operation) string {
	desc := op.Summary
	if desc == "" {
		desc = op.Description
	}
	if desc == "" {
		desc = op.Method + " " + op.Path
	}

	var lines []string
	for _, r := range op.Responses {
		if !isErrorStatus(r.Status) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", r.Status, r.Description))
	}
	if len(lines) > 0 {
		desc += "\nError Responses:\n" + strings.Join(lines, "\n")
	}
	return desc
}

// isErrorStatus matches 4xx and 5xx codes and the 4XX and 5XX ranges.
func isErrorStatus(status string) bool {
	return len(status) == 3 && (status[0] == '4' || status[0] == '5')
}

func (c *compiler) responseValidators(def *ToolDefinition) map[string]*jsonschema.Schema {
	out := make(map[string]*jsonschema.Schema)
	for _, r := range def.Operation.Responses {
		if r.Schema == nil {
			continue
		}
		em := newEmitter()
		raw, err := json.Marshal(em.root(em.emit(r.Schema)))
		if err == nil {
			var s *jsonschema.Schema
			if s, err = compileSchema(raw); err == nil {
				out[r.Status] = s
				continue
			}
		}
		c.logger.Warn("response schema skipped",
			zap.String("tool", def.Name),
			zap.String("status", r.Status),
			zap.Error(err),
		)
	}
	return out
}

func (c *compiler) included(op *Operation) bool {
	if len(c.opts.IncludeTags) > 0 && !hasAnyTag(op.Tags, c.opts.IncludeTags) {
		return false
	}
	if len(c.opts.ExcludeTags) > 0 && hasAnyTag(op.Tags, c.opts.ExcludeTags) {
		return false
	}
	return true
}

func hasAnyTag(tags, targets []string) bool {
	tagSet := make(map[string]bool)
	for _, t := range tags {
		tagSet[t] = true
	}
	for _, t := range targets {
		if tagSet[t] {
			return true
		}
	}
	return false
}
