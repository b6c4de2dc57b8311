package internal

import (
	"strings"
	"testing"
)

func TestShareURL(t *testing.T) {
	cases := map[string]func(string) bool{
		"127.0.0.1:8080": func(url string) bool { return url == "http://127.0.0.1:8080" },
		":9090":          func(url string) bool { return strings.HasPrefix(url, "http://") && strings.HasSuffix(url, ":9090") },
		"0.0.0.0:8080":   func(url string) bool { return strings.HasPrefix(url, "http://") && !strings.Contains(url, "0.0.0.0") },
	}
	for addr, check := range cases {
		if url := ShareURL(addr); !check(url) {
			t.Errorf("ShareURL(%q) = %q", addr, url)
		}
	}
}

func TestQRDataURL(t *testing.T) {
	dataURL, err := QRDataURL("http://192.168.1.20:8080")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Errorf("expected a PNG data URL, got %.40s", dataURL)
	}
}

func TestCompareVersions(t *testing.T) {
	if CompareVersions("1.2.0", "1.2.0") != 0 {
		t.Error("equal versions should compare to 0")
	}
	if CompareVersions("v1.3.0", "1.2.0") != 1 {
		t.Error("newer version should compare to 1")
	}
	if CompareVersions("1.1.0", "1.2.0") != -1 {
		t.Error("older version should compare to -1")
	}
	if CompareVersions("10.0.0", "9.0.0") != 1 {
		t.Error("multi-digit segments must compare numerically, not lexically")
	}
	if CompareVersions("1.10.0", "1.9.1") != 1 {
		t.Error("minor segment 10 should sort after 9")
	}
}
