package hface_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hface-go/hface"
)

func TestHeadersGetAndValues(t *testing.T) {
	h := hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "set-cookie", Value: "b=2"},
		{Name: "Content-Type", Value: "text/plain"},
	}

	if v, ok := h.Get(":method"); !ok || v != "GET" {
		t.Fatalf("Get(:method) = %q, %v, want GET, true", v, ok)
	}
	if _, ok := h.Get(":status"); ok {
		t.Fatalf("Get(:status) found a value on a headers list that has none")
	}
	if v, ok := h.Get("content-type"); !ok || v != "text/plain" {
		t.Fatalf("Get(content-type) = %q, %v, want text/plain, true (case-insensitive)", v, ok)
	}

	values := h.Values("Set-Cookie")
	if diff := cmp.Diff([]string{"a=1", "b=2"}, values); diff != "" {
		t.Fatalf("Values(Set-Cookie) mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadersSplit(t *testing.T) {
	h := hface.Headers{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: "Host", Value: "example.test"},
		{Name: "Accept", Value: "*/*"},
	}
	pseudo, regular := h.Split()
	if diff := cmp.Diff(hface.Headers{{Name: ":method", Value: "GET"}, {Name: ":path", Value: "/"}}, pseudo); diff != "" {
		t.Fatalf("pseudo mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(hface.Headers{{Name: "Host", Value: "example.test"}, {Name: "Accept", Value: "*/*"}}, regular); diff != "" {
		t.Fatalf("regular mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadersCloneIsIndependent(t *testing.T) {
	h := hface.Headers{{Name: "X", Value: "1"}}
	clone := h.Clone()
	clone[0].Value = "2"
	if h[0].Value != "1" {
		t.Fatalf("mutating clone affected original: %v", h)
	}
}

func TestIsPseudo(t *testing.T) {
	if !hface.IsPseudo(":authority") {
		t.Fatalf("IsPseudo(:authority) = false, want true")
	}
	if hface.IsPseudo("Authority") {
		t.Fatalf("IsPseudo(Authority) = true, want false")
	}
}
