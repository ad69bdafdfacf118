package httploader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/schema.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type": "string"}`))
	})
	mux.HandleFunc("/schema.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("type: integer\n"))
	})
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
		w.Write([]byte("type: boolean\n"))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type": `))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := New(Options{Timeout: 5 * time.Second})
	tests := []struct {
		path string
		want any
	}{
		{"/schema.json", map[string]any{"type": "string"}},
		{"/schema.yaml", map[string]any{"type": "integer"}},
		{"/schema", map[string]any{"type": "boolean"}},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			got, err := l.Fetch(context.Background(), srv.URL+test.path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("Fetch(%s) mismatch (-want +got):\n%s", test.path, diff)
			}
		})
	}

	t.Run("notFound", func(t *testing.T) {
		_, err := l.Fetch(context.Background(), srv.URL+"/missing.json")
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			t.Fatalf("got %v, want StatusError 404", err)
		}
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := l.Fetch(context.Background(), srv.URL+"/broken.json")
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("got %v, want DecodeError", err)
		}
	})
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	l := New(Options{Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := l.Fetch(context.Background(), srv.URL+"/slow.json")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("fetch took %v", elapsed)
	}
}

func TestFetchRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`true`))
	}))
	defer srv.Close()

	t.Run("disabled", func(t *testing.T) {
		hits.Store(0)
		l := New(Options{})
		if _, err := l.Fetch(context.Background(), srv.URL); err == nil {
			t.Fatal("error expected")
		}
		if n := hits.Load(); n != 1 {
			t.Errorf("hits: got %d, want 1", n)
		}
	})
	t.Run("enabled", func(t *testing.T) {
		hits.Store(0)
		l := New(Options{Retries: 3, Backoff: time.Millisecond})
		got, err := l.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if got != true {
			t.Errorf("got %v, want true", got)
		}
		if n := hits.Load(); n != 3 {
			t.Errorf("hits: got %d, want 3", n)
		}
	})
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&StatusError{StatusCode: 404}, false},
		{&StatusError{StatusCode: 502}, true},
		{&DecodeError{Err: errors.New("bad")}, false},
		{context.DeadlineExceeded, true},
	}
	for _, test := range tests {
		if got := retryable(test.err); got != test.want {
			t.Errorf("retryable(%v): got %v, want %v", test.err, got, test.want)
		}
	}
}
