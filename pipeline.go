package validate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/schemaval/validate/httploader"
	"github.com/schemaval/validate/loader"
)

// Engine names accepted by Options.Engine.
const (
	EngineJSONSchema   = "jsonschema"
	EngineGoJSONSchema = "gojsonschema"
)

// Options configures a Pipeline. Use DefaultOptions for the defaults;
// zero durations and counts are replaced by their defaults in New.
type Options struct {
	Engine       string // EngineJSONSchema or EngineGoJSONSchema
	Draft        string // draft used when $schema is missing: 4, 6, 7, 2019, 2020
	AssertFormat bool   // treat format as an assertion
	ECMARegexp   bool   // evaluate patterns with ECMA-262 semantics; jsonschema engine only
	Language     string // BCP 47 tag for error messages

	FetchTimeout         time.Duration // bound on every remote fetch
	FetchRetries         int           // extra attempts for failed fetches
	MaxConcurrentFetches int           // parallel fetches per reference depth
	Insecure             bool          // skip TLS verification for fetches

	// Fetch overrides the http loader, mainly for tests.
	Fetch  FetchFunc
	Logger *slog.Logger
}

// DefaultOptions returns the options used by the jv command when no flags
// are given.
func DefaultOptions() Options {
	return Options{
		Engine:               EngineJSONSchema,
		Draft:                "2020",
		AssertFormat:         true,
		ECMARegexp:           true,
		Language:             "en",
		FetchTimeout:         httploader.DefaultTimeout,
		MaxConcurrentFetches: 8,
	}
}

// Pipeline loads, compiles and validates documents. A Pipeline holds no
// state between runs; each compilation gets a fresh reference cache.
type Pipeline struct {
	opts   Options
	engine Engine
	fetch  FetchFunc
	logger *slog.Logger
}

// New returns a Pipeline for opts.
func New(opts Options) (*Pipeline, error) {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = httploader.DefaultTimeout
	}
	if opts.MaxConcurrentFetches <= 0 {
		opts.MaxConcurrentFetches = 8
	}
	p := &Pipeline{opts: opts, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var err error
	switch opts.Engine {
	case "", EngineJSONSchema:
		p.engine, err = newJSONSchemaEngine(opts)
	case EngineGoJSONSchema:
		p.engine, err = newGoJSONSchemaEngine(opts)
	default:
		err = fmt.Errorf("unknown engine %q", opts.Engine)
	}
	if err != nil {
		return nil, err
	}

	p.fetch = opts.Fetch
	if p.fetch == nil {
		hl := httploader.New(httploader.Options{
			Timeout:   opts.FetchTimeout,
			Retries:   opts.FetchRetries,
			Insecure:  opts.Insecure,
			UserAgent: "jv",
			Logger:    p.logger,
		})
		p.fetch = hl.Fetch
	}
	return p, nil
}

// Run validates the document at dataPath against the schema at schemaPath.
func (p *Pipeline) Run(ctx context.Context, schemaPath, dataPath string) Outcome {
	schema, err := Load(schemaPath)
	if err != nil {
		return Failed(err)
	}
	data, err := Load(dataPath)
	if err != nil {
		return Failed(err)
	}
	v, err := p.Compile(ctx, schemaPath, schema)
	if err != nil {
		return Failed(err)
	}
	return Execute(v, data)
}

// Load reads a local document, reporting failures as *InputError.
func Load(path string) (any, error) {
	doc, err := loader.Load(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return doc, nil
}

// Compile resolves every document referenced from schema and compiles it.
// loc is the file path or absolute url the schema was read from; relative
// references are resolved against it. Failures are reported as *SchemaError.
func (p *Pipeline) Compile(ctx context.Context, loc string, schema any) (Validator, error) {
	rootURL, err := toURL(loc)
	if err != nil {
		return nil, &SchemaError{URL: loc, Err: err}
	}
	switch schema.(type) {
	case map[string]any, bool:
	default:
		return nil, &SchemaError{URL: rootURL, Err: ErrInvalidRoot}
	}

	start := time.Now()
	cache := NewCache(p.fetch, p.logger)
	resources, embedded, err := p.prefetch(ctx, cache, rootURL, schema)
	if err != nil {
		return nil, &SchemaError{URL: rootURL, Err: err}
	}
	v, err := p.engine.Compile(ctx, &Compilation{
		RootURL:   rootURL,
		Root:      schema,
		Resources: resources,
		Embedded:  embedded,
		Load: func(url string) (any, error) {
			return cache.Get(ctx, url)
		},
	})
	if err != nil {
		if serr, ok := err.(*SchemaError); ok {
			return nil, serr
		}
		return nil, &SchemaError{URL: rootURL, Err: err}
	}
	p.logger.Debug("compiled schema", "url", rootURL, "engine", p.engine.Name(),
		"fetches", cache.Fetches(), "elapsed", time.Since(start))
	return v, nil
}

// Execute validates data with v, collecting all violations.
func Execute(v Validator, data any) Outcome {
	errs, err := v.Validate(data)
	if err != nil {
		return Outcome{Status: StatusSchemaError, Err: &SchemaError{Err: err}}
	}
	return invalid(errs)
}

// toURL converts a file path into an absolute file url.
// Absolute urls are returned unchanged.
func toURL(loc string) (string, error) {
	if u, err := url.Parse(loc); err == nil && len(u.Scheme) > 1 && u.IsAbs() {
		return loc, nil
	}
	path, err := filepath.Abs(loc)
	if err != nil {
		return "", err
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String(), nil
}
