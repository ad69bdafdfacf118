package validate

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrorsUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	tests := []struct {
		err  error
		want string
	}{
		{&InputError{Path: "data.json", Err: cause}, "loading data.json: file does not exist"},
		{&SchemaError{URL: "file:///s.json", Err: cause}, "compiling schema file:///s.json: file does not exist"},
		{&SchemaError{Err: cause}, "compiling schema: file does not exist"},
		{&ResolveError{URL: "https://example.com/a.json", Err: cause}, "resolving https://example.com/a.json: file does not exist"},
	}
	for _, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Errorf("got %q, want %q", got, test.want)
		}
		if !errors.Is(test.err, cause) {
			t.Errorf("%T does not unwrap to its cause", test.err)
		}
	}

	err := &SchemaError{URL: "file:///s.json", Err: &ResolveError{URL: "https://example.com/a.json", Err: cause}}
	var re *ResolveError
	if !errors.As(err, &re) || re.URL != "https://example.com/a.json" {
		t.Errorf("ResolveError not found in %v", err)
	}
}

func TestFailed(t *testing.T) {
	if got := Failed(&InputError{Path: "x", Err: fs.ErrNotExist}).Status; got != StatusInputError {
		t.Errorf("input error: got %v", got)
	}
	if got := Failed(&SchemaError{Err: ErrInvalidRoot}).Status; got != StatusSchemaError {
		t.Errorf("schema error: got %v", got)
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{InstancePath: "/a~1b/0", Message: "got number, want string"}
	if got, want := e.String(), "/a~1b/0: got number, want string"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e.InstancePath = ""
	if got, want := e.String(), "/: got number, want string"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPointers(t *testing.T) {
	tokens := []string{"a/b", "c~d", "", "0"}
	ptr := joinPtr(tokens)
	if want := "/a~1b/c~0d//0"; ptr != want {
		t.Fatalf("joinPtr: got %q, want %q", ptr, want)
	}
	if diff := cmp.Diff(tokens, splitPtr(ptr)); diff != "" {
		t.Errorf("splitPtr mismatch (-want +got):\n%s", diff)
	}
	if got := splitPtr(""); got != nil {
		t.Errorf("splitPtr(\"\"): got %q", got)
	}
}

func TestCompareTokens(t *testing.T) {
	tests := []struct {
		a, b []string
		want int
	}{
		{nil, nil, 0},
		{nil, []string{"a"}, -1},
		{[]string{"a"}, []string{"a", "b"}, -1},
		{[]string{"2"}, []string{"10"}, -1},
		{[]string{"10"}, []string{"2"}, 1},
		{[]string{"b"}, []string{"a", "z"}, 1},
		{[]string{"1", "x"}, []string{"1", "x"}, 0},
	}
	for _, test := range tests {
		got := compareTokens(test.a, test.b)
		if (got < 0) != (test.want < 0) || (got > 0) != (test.want > 0) {
			t.Errorf("compareTokens(%q, %q): got %d, want sign of %d", test.a, test.b, got, test.want)
		}
	}
}

func TestSortErrors(t *testing.T) {
	errs := []ValidationError{
		{InstancePath: "/items/10", SchemaPath: "#/items/type"},
		{InstancePath: "/items/2", SchemaPath: "#/items/type"},
		{InstancePath: "/name", SchemaPath: "#/properties/name/type"},
		{InstancePath: "", SchemaPath: "#/required", Message: "missing property 'b'"},
		{InstancePath: "", SchemaPath: "#/required", Message: "missing property 'a'"},
		{InstancePath: "/name", SchemaPath: "#/properties/name/minLength"},
	}
	sortErrors(errs)
	var got []string
	for _, e := range errs {
		got = append(got, e.InstancePath+" "+e.SchemaPath+" "+e.Message)
	}
	want := []string{
		" #/required missing property 'a'",
		" #/required missing property 'b'",
		"/items/2 #/items/type ",
		"/items/10 #/items/type ",
		"/name #/properties/name/minLength ",
		"/name #/properties/name/type ",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
