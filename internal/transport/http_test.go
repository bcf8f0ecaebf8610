package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func strPtr(s string) *string { return &s }

func newTestHTTPTransport() *HTTPTransport {
	return NewHTTPTransport(HTTPConfig{RequestTimeout: 2 * time.Second, Logger: zerolog.Nop()})
}

func TestHTTPTransport_Fetch(t *testing.T) {
	var gotPath, gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"i18n://en-us@a.txt":"A","i18n://en-us@b.txt":null}`))
	}))
	defer srv.Close()

	tr := newTestHTTPTransport()
	defer tr.Close()

	nodes, err := tr.Fetch(context.Background(), &Request{
		BaseURL: srv.URL + "/djedi/api/",
		Target:  TargetBatch,
		Entries: []Entry{
			{URI: "a", Default: strPtr("default a")},
			{URI: "b"},
		},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotPath != "/djedi/api/nodes/" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody != `{"a":"default a","b":null}` {
		t.Errorf("body = %s", gotBody)
	}

	want := Nodes{"i18n://en-us@a.txt": strPtr("A"), "i18n://en-us@b.txt": nil}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
	if tr.Stats().Requests() != 1 || tr.Stats().Failures() != 0 {
		t.Errorf("stats = %d/%d", tr.Stats().Requests(), tr.Stats().Failures())
	}
}

func TestHTTPTransport_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Kind
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("<h1>Server error 500</h1>"))
			},
			want: KindStatus,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{ "invalid": true`))
			},
			want: KindPayload,
		},
		{
			name: "not an object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`["a"]`))
			},
			want: KindPayload,
		},
		{
			name: "non string value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"a": 1}`))
			},
			want: KindPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tr := newTestHTTPTransport()
			_, err := tr.Fetch(context.Background(), &Request{BaseURL: srv.URL, Entries: []Entry{{URI: "a"}}})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf = %v, want %v (%v)", got, tt.want, err)
			}
			if tr.Stats().Failures() != 1 {
				t.Errorf("failures = %d", tr.Stats().Failures())
			}
		})
	}
}

func TestHTTPTransport_StatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestHTTPTransport().Fetch(context.Background(), &Request{BaseURL: srv.URL})
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("error %T is not *Error", err)
	}
	if te.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", te.Status)
	}
}

func TestHTTPTransport_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestHTTPTransport().Fetch(context.Background(), &Request{BaseURL: url})
	if KindOf(err) != KindNetwork {
		t.Fatalf("KindOf = %v (%v)", KindOf(err), err)
	}
}

func TestEncodeNodes_KeepsOrder(t *testing.T) {
	data, err := encodeNodes([]Entry{
		{URI: "z"},
		{URI: "a", Default: strPtr(`"quoted" <b>`)},
	})
	if err != nil {
		t.Fatalf("encodeNodes: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("invalid json: %s", data)
	}
	if string(data) != `{"z":null,"a":"\"quoted\" \u003cb\u003e"}` {
		t.Errorf("data = %s", data)
	}
}

func TestDecodeNodes_Empty(t *testing.T) {
	nodes, err := decodeNodes([]byte(" {} "))
	if err != nil {
		t.Fatalf("decodeNodes: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("nodes = %v", nodes)
	}
	if _, err := decodeNodes([]byte("null")); err == nil {
		t.Error("expected error for null payload")
	}
}
