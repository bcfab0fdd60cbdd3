package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSidecarSHA256(t *testing.T) {
	digest := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

	t.Run("bare digest", func(t *testing.T) {
		h, err := parseSidecarSHA256(strings.NewReader(digest + "\n"))
		if err != nil {
			t.Fatalf("parseSidecarSHA256: %v", err)
		}
		if h != digest {
			t.Fatalf("digest = %q", h)
		}
	})

	t.Run("sha256sum format", func(t *testing.T) {
		h, err := parseSidecarSHA256(strings.NewReader(digest + "  index-bundle.tar.gz\n"))
		if err != nil {
			t.Fatalf("parseSidecarSHA256: %v", err)
		}
		if h != digest {
			t.Fatalf("digest = %q", h)
		}
	})

	t.Run("uppercase normalized", func(t *testing.T) {
		h, err := parseSidecarSHA256(strings.NewReader(strings.ToUpper(digest)))
		if err != nil {
			t.Fatalf("parseSidecarSHA256: %v", err)
		}
		if h != digest {
			t.Fatalf("digest = %q", h)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseSidecarSHA256(strings.NewReader("not a digest\n")); err == nil {
			t.Fatal("expected error for sidecar without a digest")
		}
	})
}

func TestFileSHA256Hex(t *testing.T) {
	p := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(p, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := fileSHA256Hex(p)
	if err != nil {
		t.Fatalf("fileSHA256Hex: %v", err)
	}
	if h != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Fatalf("unexpected digest: %s", h)
	}
}
