// Package loader reads the local documents handed to the validator.
//
// Files are decoded as JSON, keeping number precision through json.Number.
// Files with a .yaml or .yml extension are decoded as YAML.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// ErrInvalidUTF8 is returned for files whose content is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 text")

var bom = []byte{0xEF, 0xBB, 0xBF}

// Load reads the file at path and decodes it.
func Load(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b, IsYAML(path))
}

// Decode decodes b as JSON, or as YAML if isYAML is set.
func Decode(b []byte, isYAML bool) (any, error) {
	b = bytes.TrimPrefix(b, bom)
	if !utf8.Valid(b) {
		return nil, ErrInvalidUTF8
	}
	if isYAML {
		var v any
		if err := yaml.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		return stringKeys(v), nil
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}

// stringKeys converts YAML mappings with non-string keys, such as
// "1: a" or "true: b", into json objects keyed by the key's text.
func stringKeys(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = stringKeys(item)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = stringKeys(item)
		}
		return m
	case []any:
		for i, item := range v {
			v[i] = stringKeys(item)
		}
		return v
	}
	return v
}

// IsYAML reports whether name carries a YAML extension.
func IsYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// FileLoader loads file urls, for schemas referenced relative
// to a local root schema.
type FileLoader struct{}

func (FileLoader) Load(url string) (any, error) {
	path, err := jsonschema.FileLoader{}.ToFile(url)
	if err != nil {
		return nil, err
	}
	v, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
