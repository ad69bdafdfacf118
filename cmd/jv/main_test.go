package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/schemaval/validate"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runJV(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.json", `{
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`)
	valid := writeFile(t, dir, "valid.json", `{"name": "Ada"}`)
	invalid := writeFile(t, dir, "invalid.json", `{"name": 42}`)
	malformed := writeFile(t, dir, "data.json", `{"name": }`)

	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
		stderr string
	}{
		{"valid", []string{schema, valid}, 0, "✅ Validation successful!", ""},
		{"invalid", []string{schema, invalid}, 1, "❌ Validation failed!", ""},
		{"malformedData", []string{schema, malformed}, 1, "", "data.json"},
		{"missingSchema", []string{filepath.Join(dir, "nope.json"), valid}, 1, "", "nope.json"},
		{"textOutput", []string{"-o", "text", schema, invalid}, 1, "/name: ", ""},
		{"noArgs", nil, 2, "", "expected 2 arguments, got 0"},
		{"oneArg", []string{schema}, 2, "", "usage: jv"},
		{"unknownFlag", []string{"--bogus", schema, valid}, 2, "", "bogus"},
		{"badOutput", []string{"-o", "xml", schema, valid}, 2, "", "xml"},
		{"badEngine", []string{"--engine", "ajv", schema, valid}, 2, "", "ajv"},
		{"gojsonschema", []string{"--engine", "gojsonschema", schema, invalid}, 1, "❌ Validation failed!", ""},
		{"gojsonschemaNoAssertFormat", []string{"--engine", "gojsonschema", "--assert-format=false", schema, valid}, 2, "", "always asserts formats"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, stdout, stderr := runJV(test.args...)
			if code != test.code {
				t.Errorf("exit code: got %d, want %d\nstdout: %s\nstderr: %s", code, test.code, stdout, stderr)
			}
			if !strings.Contains(stdout, test.stdout) {
				t.Errorf("stdout %q does not contain %q", stdout, test.stdout)
			}
			if !strings.Contains(stderr, test.stderr) {
				t.Errorf("stderr %q does not contain %q", stderr, test.stderr)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runJV("--help")
	if code != 0 {
		t.Errorf("exit code: got %d, want 0", code)
	}
	for _, flag := range []string{"--engine", "--timeout", "--insecure", "--output"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("usage lacks %s", flag)
		}
	}
}

func TestRunViolationsJSON(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.json", `{"required": ["a", "b"]}`)
	data := writeFile(t, dir, "data.json", `{}`)

	code, stdout, _ := runJV("--color", "never", schema, data)
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	_, body, _ := strings.Cut(stdout, "\n")
	var errs []validate.ValidationError
	if err := json.Unmarshal([]byte(body), &errs); err != nil {
		t.Fatalf("violations are not json: %v\n%s", err, stdout)
	}
	if len(errs) == 0 || errs[0].Keyword != "required" {
		t.Errorf("got %+v", errs)
	}
}

func TestRunRemoteSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/name.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"type": "string"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	schema := writeFile(t, dir, "schema.json", `{"properties": {"name": {"$ref": "`+srv.URL+`/name.json"}}}`)
	broken := writeFile(t, dir, "broken.json", `{"$ref": "`+srv.URL+`/missing.json"}`)
	data := writeFile(t, dir, "data.json", `{"name": "Ada"}`)

	if code, stdout, stderr := runJV("-v", schema, data); code != 0 {
		t.Errorf("exit code: got %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	} else if !strings.Contains(stderr, "level=DEBUG") {
		t.Errorf("verbose run logged nothing: %q", stderr)
	}

	code, stdout, stderr := runJV(broken, data)
	if code != 1 {
		t.Errorf("exit code: got %d, want 1", code)
	}
	if stdout != "" {
		t.Errorf("stdout: got %q, want empty", stdout)
	}
	if !strings.Contains(stderr, "❌ Validation error:") || !strings.Contains(stderr, "404") {
		t.Errorf("stderr %q lacks the cause", stderr)
	}
}
