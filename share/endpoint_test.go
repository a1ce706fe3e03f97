package wcshare

import (
	"testing"
)

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", DefaultBindAddr, true},
		{"127.0.0.1:8080", "127.0.0.1:8080", true},
		{"0.0.0.0:9000", "0.0.0.0:9000", true},
		{"localhost:0", "localhost:0", true},
		{"localhost", "", false},
		{"not an address", "", false},
	}
	for _, test := range tests {
		got, err := ResolveBindAddr(test.in)
		if test.ok && err != nil {
			t.Errorf("ResolveBindAddr(%q) returned error: %s", test.in, err)
			continue
		}
		if !test.ok {
			if err == nil {
				t.Errorf("ResolveBindAddr(%q) = %q, want error", test.in, got)
			}
			continue
		}
		if got != test.want {
			t.Errorf("ResolveBindAddr(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestResolveServerURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"wss://192.0.2.10:8080", "wss://192.0.2.10:8080", true},
		{"wss://192.0.2.10", "wss://192.0.2.10:8080", true},
		{"192.0.2.10", "wss://192.0.2.10:8080", true},
		{"192.0.2.10:9000", "wss://192.0.2.10:9000", true},
		{"https://example.com", "wss://example.com:8080", true},
		{"wss://", "", false},
	}
	for _, test := range tests {
		u, err := ResolveServerURI(test.in)
		if test.ok && err != nil {
			t.Errorf("ResolveServerURI(%q) returned error: %s", test.in, err)
			continue
		}
		if !test.ok {
			if err == nil {
				t.Errorf("ResolveServerURI(%q) = %q, want error", test.in, u)
			}
			continue
		}
		if u.String() != test.want {
			t.Errorf("ResolveServerURI(%q) = %q, want %q", test.in, u, test.want)
		}
	}
}
