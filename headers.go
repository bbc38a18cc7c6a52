package hface

import "strings"

// Header is a single name/value pair. Names beginning with ":" are
// pseudo-headers (e.g. ":method", ":status") and, per RFC 9113/9114, must
// precede regular headers in any Headers list a peer is willing to accept;
// engines that synthesize or strip pseudo-headers are responsible for
// maintaining that ordering.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of headers. Duplicates are allowed and
// meaningful (e.g. repeated Set-Cookie).
type Headers []Header

// Get returns the value of the first header matching name, case-sensitively
// for pseudo-headers and case-insensitively for regular headers, along with
// whether it was found.
func (h Headers) Get(name string) (string, bool) {
	pseudo := strings.HasPrefix(name, ":")
	for _, hd := range h {
		if pseudo {
			if hd.Name == name {
				return hd.Value, true
			}
			continue
		}
		if strings.EqualFold(hd.Name, name) {
			return hd.Value, true
		}
	}
	return "", false
}

// Values returns every value for headers matching name, preserving order.
func (h Headers) Values(name string) []string {
	pseudo := strings.HasPrefix(name, ":")
	var out []string
	for _, hd := range h {
		if pseudo {
			if hd.Name == name {
				out = append(out, hd.Value)
			}
			continue
		}
		if strings.EqualFold(hd.Name, name) {
			out = append(out, hd.Value)
		}
	}
	return out
}

// Clone returns a deep-enough copy of h (headers are value types, so this
// is just a slice copy, but it protects the caller's slice from aliasing
// with an engine's internal buffers).
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// IsPseudo reports whether name is a pseudo-header name.
func IsPseudo(name string) bool {
	return strings.HasPrefix(name, ":")
}

// Split partitions h into its pseudo-headers and its regular headers,
// preserving relative order within each group. It does not check that all
// pseudo-headers precede all regular headers in h: a pseudo-header placed
// after a regular one still lands in pseudo.
func (h Headers) Split() (pseudo, regular Headers) {
	for _, hd := range h {
		if IsPseudo(hd.Name) {
			pseudo = append(pseudo, hd)
		} else {
			regular = append(regular, hd)
		}
	}
	return pseudo, regular
}
