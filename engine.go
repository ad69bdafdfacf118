package validate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/schemaval/validate/formats"
	"github.com/schemaval/validate/loader"
)

// Compilation is the input of Engine.Compile.
type Compilation struct {
	RootURL   string         // absolute url of the root schema
	Root      any            // decoded root schema
	Resources map[string]any // documents already resolved, keyed by url

	// Embedded holds the http resources identified inside Root or
	// Resources, keyed by their absolute url. Engines that only index
	// documents by retrieval url register them as documents of their own.
	Embedded map[string]any

	// Load resolves http and https urls the engine finds unresolved.
	Load func(url string) (any, error)
}

// Engine compiles schemas into validators.
type Engine interface {
	Name() string
	Compile(ctx context.Context, c *Compilation) (Validator, error)
}

// Validator checks a data document, reporting every violation.
type Validator interface {
	Validate(data any) ([]ValidationError, error)
}

type loaderFunc func(url string) (any, error)

func (f loaderFunc) Load(url string) (any, error) {
	return f(url)
}

// jsonschemaEngine is backed by github.com/santhosh-tekuri/jsonschema.
type jsonschemaEngine struct {
	draft        *jsonschema.Draft
	assertFormat bool
	ecmaRegexp   bool
	printer      *message.Printer
}

func newJSONSchemaEngine(opts Options) (*jsonschemaEngine, error) {
	draft, err := jsonschemaDraft(opts.Draft)
	if err != nil {
		return nil, err
	}
	tag, err := language.Parse(opts.Language)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", opts.Language, err)
	}
	return &jsonschemaEngine{
		draft:        draft,
		assertFormat: opts.AssertFormat,
		ecmaRegexp:   opts.ECMARegexp,
		printer:      message.NewPrinter(tag),
	}, nil
}

func jsonschemaDraft(s string) (*jsonschema.Draft, error) {
	switch s {
	case "4":
		return jsonschema.Draft4, nil
	case "6":
		return jsonschema.Draft6, nil
	case "7":
		return jsonschema.Draft7, nil
	case "2019":
		return jsonschema.Draft2019, nil
	case "", "2020":
		return jsonschema.Draft2020, nil
	}
	return nil, fmt.Errorf("unsupported draft %q", s)
}

func (e *jsonschemaEngine) Name() string {
	return EngineJSONSchema
}

func (e *jsonschemaEngine) Compile(ctx context.Context, comp *Compilation) (Validator, error) {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(e.draft)
	if e.assertFormat {
		c.AssertFormat()
	}
	for _, f := range formats.Formats() {
		c.RegisterFormat(f)
	}
	if e.ecmaRegexp {
		c.UseRegexpEngine(compileECMARegexp)
	}
	remote := loaderFunc(comp.Load)
	c.UseLoader(jsonschema.SchemeURLLoader{
		"file":  loader.FileLoader{},
		"http":  remote,
		"https": remote,
	})

	for _, docs := range []map[string]any{comp.Resources, comp.Embedded} {
		urls := make([]string, 0, len(docs))
		for u := range docs {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		for _, u := range urls {
			if err := c.AddResource(u, docs[u]); err != nil {
				return nil, err
			}
		}
	}
	if err := c.AddResource(comp.RootURL, comp.Root); err != nil {
		return nil, err
	}

	sch, err := c.Compile(comp.RootURL)
	if err != nil {
		var sverr *jsonschema.SchemaValidationError
		if errors.As(err, &sverr) {
			serr := &SchemaError{URL: sverr.URL, Err: err}
			var verr *jsonschema.ValidationError
			if errors.As(sverr.Err, &verr) {
				serr.Details = e.normalize(verr)
			}
			return nil, serr
		}
		return nil, err
	}
	return &jsonschemaValidator{engine: e, schema: sch}, nil
}

type jsonschemaValidator struct {
	engine *jsonschemaEngine
	schema *jsonschema.Schema
}

func (v *jsonschemaValidator) Validate(data any) ([]ValidationError, error) {
	err := v.schema.Validate(data)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	return v.engine.normalize(verr), nil
}

// normalize flattens the error tree into its leaves.
func (e *jsonschemaEngine) normalize(verr *jsonschema.ValidationError) []ValidationError {
	var errs []ValidationError
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) > 0 {
			for _, cause := range ve.Causes {
				walk(cause)
			}
			return
		}
		errs = append(errs, e.leafError(ve))
	}
	walk(verr)
	sortErrors(errs)
	return errs
}

func (e *jsonschemaEngine) leafError(ve *jsonschema.ValidationError) ValidationError {
	kw := ve.ErrorKind.KeywordPath()
	schemaURL := ve.SchemaURL
	if len(kw) > 0 {
		schemaURL += joinPtr(kw)
	}
	schemaPath := "#"
	if i := strings.IndexByte(schemaURL, '#'); i != -1 {
		schemaPath = schemaURL[i:]
	}
	keyword := kindName(ve.ErrorKind)
	if len(kw) > 0 {
		keyword = kw[len(kw)-1]
	}
	return ValidationError{
		InstancePath: joinPtr(ve.InstanceLocation),
		SchemaPath:   schemaPath,
		SchemaURL:    schemaURL,
		Keyword:      keyword,
		Message:      ve.ErrorKind.LocalizedString(e.printer),
		Params:       params(ve.ErrorKind),
	}
}

// kindName derives a keyword from an error kind's type name,
// for kinds that carry no keyword path.
func kindName(k jsonschema.ErrorKind) string {
	name := fmt.Sprintf("%T", k)
	if i := strings.LastIndexByte(name, '.'); i != -1 {
		name = name[i+1:]
	}
	return lowerFirst(name)
}

// params exposes the exported fields of an error kind.
func params(k jsonschema.ErrorKind) map[string]any {
	b, err := json.Marshal(k)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}
	m := map[string]any{}
	for name, v := range fields {
		if obj, ok := v.(map[string]any); ok && len(obj) == 0 {
			continue
		}
		if v == nil {
			continue
		}
		m[lowerFirst(name)] = v
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

