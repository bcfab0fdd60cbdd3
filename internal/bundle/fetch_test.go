package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	_, _, err := Fetch(context.Background(), "ftp://example.com/bundle.tar.gz")
	if err == nil || !strings.Contains(err.Error(), "unsupported bundle URL scheme") {
		t.Fatalf("err = %v, want unsupported-scheme error", err)
	}
}

func TestFetchHTTP(t *testing.T) {
	payload := []byte("bundle-bytes")
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	newServer := func(sidecar string, sidecarStatus int) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/bundle.tar.gz":
				_, _ = w.Write(payload)
			case "/bundle.tar.gz.sha256":
				if sidecarStatus != http.StatusOK {
					w.WriteHeader(sidecarStatus)
					return
				}
				_, _ = w.Write([]byte(sidecar))
			default:
				http.NotFound(w, r)
			}
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	t.Run("with matching sidecar", func(t *testing.T) {
		srv := newServer(digest+"  bundle.tar.gz\n", http.StatusOK)
		path, cleanup, err := Fetch(context.Background(), srv.URL+"/bundle.tar.gz")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		defer cleanup()
		b, err := os.ReadFile(path)
		if err != nil || string(b) != string(payload) {
			t.Fatalf("downloaded content = %q, %v", b, err)
		}
	})

	t.Run("sidecar mismatch is fatal", func(t *testing.T) {
		srv := newServer(strings.Repeat("0", 64)+"\n", http.StatusOK)
		_, _, err := Fetch(context.Background(), srv.URL+"/bundle.tar.gz")
		if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
			t.Fatalf("err = %v, want checksum mismatch", err)
		}
	})

	t.Run("missing sidecar is tolerated", func(t *testing.T) {
		srv := newServer("", http.StatusNotFound)
		path, cleanup, err := Fetch(context.Background(), srv.URL+"/bundle.tar.gz")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		defer cleanup()
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("downloaded file missing: %v", err)
		}
	})

	t.Run("server error is fatal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		_, _, err := Fetch(context.Background(), srv.URL+"/bundle.tar.gz")
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
	})
}

func TestFetchCleanupRemovesTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".sha256") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("x"))
	}))
	t.Cleanup(srv.Close)

	path, cleanup, err := Fetch(context.Background(), srv.URL+"/bundle.tar.gz")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup left the temp file behind")
	}
}

func TestSplitGCSURL(t *testing.T) {
	cases := []struct {
		in             string
		bucket, object string
		ok             bool
	}{
		{"gs://bucket/index-bundle.tar.gz", "bucket", "index-bundle.tar.gz", true},
		{"gs://bucket/deep/path/bundle.tar.gz", "bucket", "deep/path/bundle.tar.gz", true},
		{"gs://bucket", "", "", false},
		{"gs://bucket/", "", "", false},
		{"gs:///object", "", "", false},
	}
	for _, c := range cases {
		bucket, object, err := splitGCSURL(c.in)
		if c.ok && err != nil {
			t.Errorf("splitGCSURL(%q): %v", c.in, err)
			continue
		}
		if !c.ok {
			if err == nil {
				t.Errorf("splitGCSURL(%q) accepted invalid URL", c.in)
			}
			continue
		}
		if bucket != c.bucket || object != c.object {
			t.Errorf("splitGCSURL(%q) = %q, %q", c.in, bucket, object)
		}
	}
}
