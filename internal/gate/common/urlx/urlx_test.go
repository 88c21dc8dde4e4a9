package urlx

import (
	"errors"
	"testing"
)

func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/some/path?q=1", "https://example.com"},
		{"https://Example.COM", "https://example.com"},
		{"http://example.com:80/", "http://example.com"},
		{"https://example.com:443", "https://example.com"},
		{"https://example.com:8443", "https://example.com:8443"},
		{"https://sub.example.com/x", "https://sub.example.com"},
		{"https://example.com.", "https://example.com"},
		{"HTTPS://example.com", "https://example.com"},
		{"https://bücher.de/shop", "https://xn--bcher-kva.de"},
	}
	for _, tt := range tests {
		got, err := NormalizeOrigin(tt.in)
		if err != nil {
			t.Errorf("NormalizeOrigin(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeOrigin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeOriginRejectsInvalid(t *testing.T) {
	bad := []string{
		"",
		"not a url at all ::",
		"ftp://example.com",
		"chrome://settings",
		"https://",
		"mailto:user@example.com",
	}
	for _, in := range bad {
		_, err := NormalizeOrigin(in)
		if err == nil {
			t.Errorf("NormalizeOrigin(%q) expected error, got nil", in)
			continue
		}
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("NormalizeOrigin(%q) error = %v, want ErrInvalidURL", in, err)
		}
	}
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"chrome://extensions", true},
		{"about:blank", true},
		{"chrome-extension://abcdef/popup.html", true},
		{"moz-extension://abcdef/blocked.html", true},
		{"file:///tmp/x.html", true},
		{"https://example.com", false},
		{"http://example.com", false},
	}
	for _, tt := range tests {
		if got := IsInternal(tt.in); got != tt.want {
			t.Errorf("IsInternal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHostAndScheme(t *testing.T) {
	h, ok := Host("https://example.com:8443")
	if !ok || h != "example.com" {
		t.Errorf("Host = %q, %v; want example.com, true", h, ok)
	}
	s, ok := Scheme("https://example.com")
	if !ok || s != "https" {
		t.Errorf("Scheme = %q, %v; want https, true", s, ok)
	}
	if _, ok := Host("%%%"); ok {
		t.Error("Host on garbage input should return false")
	}
}
