package cache

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"djedigo/pkg/uri"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	id := uri.Identifier{Scheme: "i18n", Namespace: "en-us", Path: "page", Ext: "txt"}

	if _, ok := s.Get(id); ok {
		t.Fatal("empty store returned a value")
	}

	s.Set(id, "first")
	s.Set(id, "second")

	got, ok := s.Get(id)
	if !ok || got != "second" {
		t.Fatalf("Get = %q, %v; want second, true", got, ok)
	}
	if !s.Has(id) {
		t.Error("Has = false after Set")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_KeyedByTuple(t *testing.T) {
	s := NewMemoryStore()
	p := uri.NewParser(uri.DefaultConfig(), "en-us", 0)

	s.Set(p.Expand("page"), "text")
	if got, ok := s.Get(p.Expand("i18n://en-us@page.txt")); !ok || got != "text" {
		t.Fatalf("equivalent compact string missed: %q, %v", got, ok)
	}
	if s.Has(p.Expand("sv-se@page")) {
		t.Fatal("other namespace should miss")
	}
}

func TestMemoryStore_SetManyDeleteReset(t *testing.T) {
	s := NewMemoryStore()
	a := uri.Identifier{Path: "a"}
	b := uri.Identifier{Path: "b"}

	s.SetMany(map[uri.Identifier]string{a: "1", b: "2"})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	if !s.Delete(a) {
		t.Error("Delete(a) = false")
	}
	if s.Delete(a) {
		t.Error("second Delete(a) = true")
	}

	s.Reset()
	if s.Len() != 0 || s.Has(b) {
		t.Error("Reset kept entries")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := uri.Identifier{Path: string(rune('a' + n))}
			for j := 0; j < 100; j++ {
				s.Set(id, "v")
				s.Get(id)
				s.Has(id)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}
}

func TestRemovedLog(t *testing.T) {
	r, err := NewRemovedLog(2)
	if err != nil {
		t.Fatalf("NewRemovedLog: %v", err)
	}

	a := uri.Identifier{Path: "a"}
	b := uri.Identifier{Path: "b"}
	c := uri.Identifier{Path: "c"}

	r.Add(a)
	r.Add(b)
	if !r.Contains(a) {
		t.Error("Contains(a) = false")
	}
	if _, ok := r.ReportedAt(b); !ok {
		t.Error("ReportedAt(b) missing")
	}

	r.Add(c) // evicts a
	if diff := cmp.Diff([]uri.Identifier{b, c}, r.List()); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len after Reset = %d", r.Len())
	}
}

func TestNewRemovedLog_InvalidSize(t *testing.T) {
	if _, err := NewRemovedLog(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
