package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// writeArchive builds a tar.gz on disk from raw tar headers, returning its
// path.
func writeArchive(t *testing.T, entries []*tar.Header, contents map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, h := range entries {
		if c, ok := contents[h.Name]; ok {
			h.Size = int64(len(c))
		}
		if err := tw.WriteHeader(h); err != nil {
			t.Fatal(err)
		}
		if c, ok := contents[h.Name]; ok {
			if _, err := tw.Write([]byte(c)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractTarGz(t *testing.T) {
	archive := writeArchive(t,
		[]*tar.Header{
			{Name: "index/", Typeflag: tar.TypeDir, Mode: 0o755},
			{Name: "index/chroma/", Typeflag: tar.TypeDir, Mode: 0o755},
			{Name: "index/chroma/chroma.sqlite3", Typeflag: tar.TypeReg, Mode: 0o644},
			{Name: "index/bm25.pkl", Typeflag: tar.TypeReg, Mode: 0o644},
			// Parent dir entry deliberately absent: extraction must create it.
			{Name: "index/deep/nested/meta.pkl", Typeflag: tar.TypeReg, Mode: 0o644},
		},
		map[string]string{
			"index/chroma/chroma.sqlite3": "db",
			"index/bm25.pkl":              "bm25",
			"index/deep/nested/meta.pkl":  "meta",
		},
	)

	dest := t.TempDir()
	if err := ExtractTarGz(archive, dest); err != nil {
		t.Fatalf("ExtractTarGz: %v", err)
	}

	for path, want := range map[string]string{
		"index/chroma/chroma.sqlite3": "db",
		"index/bm25.pkl":              "bm25",
		"index/deep/nested/meta.pkl":  "meta",
	} {
		b, err := os.ReadFile(filepath.Join(dest, path))
		if err != nil {
			t.Errorf("missing %s: %v", path, err)
			continue
		}
		if string(b) != want {
			t.Errorf("%s content = %q, want %q", path, b, want)
		}
	}
}

func TestExtractTarGzSkipsUnsafeEntries(t *testing.T) {
	archive := writeArchive(t,
		[]*tar.Header{
			{Name: "../escape.txt", Typeflag: tar.TypeReg, Mode: 0o644},
			{Name: "/abs.txt", Typeflag: tar.TypeReg, Mode: 0o644},
			{Name: "ok.txt", Typeflag: tar.TypeReg, Mode: 0o644},
			{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"},
		},
		map[string]string{
			"../escape.txt": "bad",
			"/abs.txt":      "bad",
			"ok.txt":        "good",
		},
	)

	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := ExtractTarGz(archive, dest); err != nil {
		t.Fatalf("ExtractTarGz: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "ok.txt")); err != nil {
		t.Errorf("safe entry not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal entry escaped the destination")
	}
	if _, err := os.Lstat(filepath.Join(dest, "link")); !os.IsNotExist(err) {
		t.Error("symlink entry was extracted")
	}
}

func TestExtractTarGzRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(path, []byte("this is not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractTarGz(path, t.TempDir()); err == nil {
		t.Fatal("expected error for non-gzip input")
	}
}

func TestSanitizeArchivePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"index", "index"},
		{"./index", "index"},
		{"data/index/bm25.pkl", "data/index/bm25.pkl"},
		{"../index", ""},
		{"dir/../index", ""},
		{"/abs/index", ""},
		{"dir\\index", "dir/index"},
		{".", ""},
		{"", ""},
	}
	for _, c := range cases {
		got := sanitizeArchivePath(c.in)
		if got != c.want {
			t.Fatalf("sanitizeArchivePath(%q)=%q want %q", c.in, got, c.want)
		}
	}
}
