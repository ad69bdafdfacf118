package validate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InputError reports a local document that could not be read or parsed.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// SchemaError reports a schema that could not be compiled: the schema is
// malformed, a reference could not be resolved, or the engine rejected it.
//
// Details holds the meta-schema violations, if the engine reported any.
type SchemaError struct {
	URL     string
	Err     error
	Details []ValidationError
}

func (e *SchemaError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("compiling schema: %v", e.Err)
	}
	return fmt.Sprintf("compiling schema %s: %v", e.URL, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ResolveError reports a referenced document that could not be fetched.
type ResolveError struct {
	URL string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.URL, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// ErrInvalidRoot is reported for root schemas that are neither an object
// nor a boolean.
var ErrInvalidRoot = errors.New("schema root must be an object or a boolean")

// ValidationError is a single violation found in the data document.
type ValidationError struct {
	// InstancePath is the json-pointer of the offending value; empty for root.
	InstancePath string `json:"instancePath"`
	// SchemaPath is the json-pointer fragment of the failing keyword.
	SchemaPath string `json:"schemaPath"`
	// SchemaURL is the absolute location of the failing keyword, if known.
	SchemaURL string         `json:"schemaURL,omitempty"`
	Keyword   string         `json:"keyword"`
	Message   string         `json:"message"`
	Params    map[string]any `json:"params,omitempty"`
}

func (e ValidationError) String() string {
	loc := e.InstancePath
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// escape encodes a json-pointer reference token.
func escape(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

func joinPtr(tokens []string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteByte('/')
		sb.WriteString(escape(tok))
	}
	return sb.String()
}

func splitPtr(ptr string) []string {
	if ptr == "" {
		return nil
	}
	tokens := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, tok := range tokens {
		tok = strings.ReplaceAll(tok, "~1", "/")
		tokens[i] = strings.ReplaceAll(tok, "~0", "~")
	}
	return tokens
}

// sortErrors orders violations by instance location, then by schema
// location, so that output does not depend on map iteration inside an
// engine.
func sortErrors(errs []ValidationError) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if c := compareTokens(splitPtr(a.InstancePath), splitPtr(b.InstancePath)); c != 0 {
			return c < 0
		}
		if a.SchemaPath != b.SchemaPath {
			return a.SchemaPath < b.SchemaPath
		}
		if a.Keyword != b.Keyword {
			return a.Keyword < b.Keyword
		}
		return a.Message < b.Message
	})
}

// compareTokens orders json-pointer token lists depth-first: array
// indexes numerically, property names lexically, parents before children.
func compareTokens(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		x, xerr := strconv.Atoi(a[i])
		y, yerr := strconv.Atoi(b[i])
		if xerr == nil && yerr == nil && x != y {
			if x < y {
				return -1
			}
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}
