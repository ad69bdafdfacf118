package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonreference"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/language"

	"github.com/schemaval/validate/formats"
	"github.com/schemaval/validate/loader"
)

// gojsonschema reports error types, not keywords.
var gojsonschemaKeywords = map[string]string{
	"invalid_type":                    "type",
	"string_gte":                      "minLength",
	"string_lte":                      "maxLength",
	"number_gte":                      "minimum",
	"number_gt":                       "exclusiveMinimum",
	"number_lte":                      "maximum",
	"number_lt":                       "exclusiveMaximum",
	"multiple_of":                     "multipleOf",
	"array_min_items":                 "minItems",
	"array_max_items":                 "maxItems",
	"unique":                          "uniqueItems",
	"array_no_additional_items":       "additionalItems",
	"array_min_properties":            "minProperties",
	"array_max_properties":            "maxProperties",
	"additional_property_not_allowed": "additionalProperties",
	"invalid_property_pattern":        "patternProperties",
	"invalid_property_name":           "propertyNames",
	"missing_dependency":              "dependencies",
	"number_any_of":                   "anyOf",
	"number_one_of":                   "oneOf",
	"number_all_of":                   "allOf",
	"number_not":                      "not",
	"condition_then":                  "then",
	"condition_else":                  "else",
	"contains":                        "contains",
	"required":                        "required",
	"enum":                            "enum",
	"const":                           "const",
	"pattern":                         "pattern",
	"format":                          "format",
	"false":                           "false",
}

type formatChecker formats.Checker

func (f formatChecker) IsFormat(input any) bool {
	return f(input) == nil
}

// gojsonschema keeps format checkers in a package-level registry.
var registerFormats sync.Once

// refLoader loads the documents gojsonschema finds missing from its pool:
// http and https urls through the compilation's cache, file urls with
// package loader.
type refLoader struct {
	url  string
	load func(url string) (any, error)
}

func (l *refLoader) JsonSource() any {
	return l.url
}

func (l *refLoader) LoadJSON() (any, error) {
	u := normalizeURL(l.url)
	var doc any
	var err error
	switch {
	case isHTTP(u):
		doc, err = l.load(u)
	case strings.HasPrefix(u, "file://"):
		doc, err = loader.FileLoader{}.Load(u)
	default:
		return gojsonschema.NewReferenceLoader(l.url).LoadJSON()
	}
	if err != nil {
		return nil, err
	}
	// gojsonschema expects json.Number for every number
	return gojsonschema.NewGoLoader(doc).LoadJSON()
}

func (l *refLoader) JsonReference() (gojsonreference.JsonReference, error) {
	return gojsonreference.NewJsonReference(l.url)
}

func (l *refLoader) LoaderFactory() gojsonschema.JSONLoaderFactory {
	return refLoaderFactory{l.load}
}

type refLoaderFactory struct {
	load func(url string) (any, error)
}

func (f refLoaderFactory) New(source string) gojsonschema.JSONLoader {
	return &refLoader{url: source, load: f.load}
}

// gojsonschemaEngine is backed by github.com/xeipuuv/gojsonschema. It
// supports drafts 4, 6 and 7, always asserts formats, always uses Go
// regexp semantics and reports messages in English.
type gojsonschemaEngine struct {
	draft gojsonschema.Draft
}

func newGoJSONSchemaEngine(opts Options) (*gojsonschemaEngine, error) {
	e := &gojsonschemaEngine{}
	switch opts.Draft {
	case "4":
		e.draft = gojsonschema.Draft4
	case "6":
		e.draft = gojsonschema.Draft6
	case "7":
		e.draft = gojsonschema.Draft7
	case "", "2020":
		e.draft = gojsonschema.Hybrid
	default:
		return nil, fmt.Errorf("draft %q not supported by %s engine", opts.Draft, EngineGoJSONSchema)
	}
	if !opts.AssertFormat {
		return nil, fmt.Errorf("%s engine always asserts formats", EngineGoJSONSchema)
	}
	if opts.Language != "" {
		tag, err := language.Parse(opts.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", opts.Language, err)
		}
		if base, _ := tag.Base(); base.String() != "en" {
			return nil, fmt.Errorf("%s engine reports messages in English only", EngineGoJSONSchema)
		}
	}
	registerFormats.Do(func() {
		names := formats.Names()
		sort.Strings(names)
		for _, name := range names {
			c, _ := formats.Get(name)
			gojsonschema.FormatCheckers.Add(name, formatChecker(c))
		}
	})
	return e, nil
}

func (e *gojsonschemaEngine) Name() string {
	return EngineGoJSONSchema
}

func (e *gojsonschemaEngine) Compile(ctx context.Context, comp *Compilation) (Validator, error) {
	sl := gojsonschema.NewSchemaLoader()
	sl.Draft = e.draft
	sl.AutoDetect = true
	sl.Validate = true

	urls := make([]string, 0, len(comp.Resources))
	for u := range comp.Resources {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	for _, u := range urls {
		if err := sl.AddSchema(u, gojsonschema.NewGoLoader(comp.Resources[u])); err != nil {
			return nil, &ResolveError{URL: u, Err: err}
		}
	}
	if err := sl.AddSchema(comp.RootURL, gojsonschema.NewGoLoader(comp.Root)); err != nil {
		return nil, err
	}
	// comp.Embedded is not needed: the pool indexes every id it parses.
	sch, err := sl.Compile(&refLoader{url: comp.RootURL, load: comp.Load})
	if err != nil {
		return nil, err
	}
	return &gojsonschemaValidator{schema: sch}, nil
}

type gojsonschemaValidator struct {
	schema *gojsonschema.Schema
}

func (v *gojsonschemaValidator) Validate(data any) ([]ValidationError, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	var errs []ValidationError
	for _, re := range result.Errors() {
		errs = append(errs, resultError(re))
	}
	sortErrors(errs)
	return errs, nil
}

func resultError(re gojsonschema.ResultError) ValidationError {
	keyword, ok := gojsonschemaKeywords[re.Type()]
	if !ok {
		keyword = re.Type()
	}
	var ptr string
	if ctx := re.Context(); ctx != nil {
		tokens := strings.Split(ctx.String("\x00"), "\x00")
		if len(tokens) > 0 && tokens[0] == "(root)" {
			tokens = tokens[1:]
		}
		ptr = joinPtr(tokens)
	}
	var params map[string]any
	for k, v := range re.Details() {
		if k == "field" || k == "context" {
			continue
		}
		if params == nil {
			params = map[string]any{}
		}
		params[k] = v
	}
	return ValidationError{
		InstancePath: ptr,
		Keyword:      keyword,
		Message:      re.Description(),
		Params:       params,
	}
}
