package utils

import "testing"

func TestContainsURL(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"check out https://example.com/page", true},
		{"http://example.com", true},
		{"no links here", false},
		{"ftp://example.com", false},
		{"https:// not a link", false},
	}
	for _, tc := range cases {
		if got := ContainsURL(tc.content); got != tc.want {
			t.Fatalf("ContainsURL(%q) = %t, want %t", tc.content, got, tc.want)
		}
	}
}

func TestNormalizeHost(t *testing.T) {
	host, err := NormalizeHost("https://EXAMPLE.com/path?x=1")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if host != "example.com" {
		t.Fatalf("expected example.com, got %q", host)
	}

	host, err = NormalizeHost("https://bücher.de")
	if err != nil {
		t.Fatalf("normalize idn: %v", err)
	}
	if host != "xn--bcher-kva.de" {
		t.Fatalf("expected punycode host, got %q", host)
	}
}
