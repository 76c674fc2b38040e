package dnsname

import "testing"

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"api":       "api",
		"  API  ":   "api",
		"My-App":    "my-app",
		"café":      "xn--caf-dma",
		"a1":        "a1",
		"shop2024":  "shop2024",
	}
	for in, want := range cases {
		got, err := NormalizeLabel(in)
		if err != nil {
			t.Fatalf("NormalizeLabel(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeLabel(%q)=%q; want %q", in, got, want)
		}
	}
}

func TestNormalizeLabelRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"-api",
		"api-",
		"a.b",
		"ap i",
		"app_1",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", // 64 octets
	} {
		if _, err := NormalizeLabel(in); err == nil {
			t.Fatalf("NormalizeLabel(%q) expected error", in)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	cases := map[string]string{
		"https://myapp.example.com/": "myapp.example.com.",
		"http://proj1.vercel.app":    "proj1.vercel.app.",
		"proj1.vercel.app.":          "proj1.vercel.app.",
		"Proj1.Vercel.App/some/path": "proj1.vercel.app.",
		"  https://a.b.c  ":          "a.b.c.",
	}
	for in, want := range cases {
		got, err := NormalizeTarget(in)
		if err != nil {
			t.Fatalf("NormalizeTarget(%q) unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizeTarget(%q)=%q; want %q", in, got, want)
		}
	}

	if _, err := NormalizeTarget("https:///"); err == nil {
		t.Fatalf("expected error for empty host")
	}
	if _, err := NormalizeTarget(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
