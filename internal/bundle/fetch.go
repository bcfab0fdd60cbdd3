// Package bundle downloads and unpacks index bundle archives: gzip-compressed
// tarballs of a full index tree, distributed via URL to seed a fresh
// persistent volume.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const userAgent = "ragboot"

// Fetch downloads url into a temporary file and returns its path plus a
// cleanup func that removes it. Supported schemes: http://, https:// and
// gs://bucket/object.
//
// For http(s) URLs a `<url>.sha256` sidecar is fetched and verified when
// present; a missing sidecar is only a warning.
func Fetch(ctx context.Context, url string) (string, func(), error) {
	base, err := writableTempBase()
	if err != nil {
		return "", nil, err
	}
	tmpDir, err := os.MkdirTemp(base, "ragboot-bundle-*")
	if err != nil {
		return "", nil, fmt.Errorf("cannot create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	dest := filepath.Join(tmpDir, "index-bundle.tar.gz")

	switch {
	case strings.HasPrefix(url, "gs://"):
		err = fetchGCS(ctx, url, dest)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		err = fetchHTTP(ctx, url, dest)
		if err == nil {
			err = verifySidecar(ctx, url, dest)
		}
	default:
		err = fmt.Errorf("unsupported bundle URL scheme: %q (expected http://, https:// or gs://)", url)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return dest, cleanup, nil
}

// fetchHTTP downloads a URL to dest while printing a byte-based progress
// indicator to stderr.
func fetchHTTP(ctx context.Context, url, dest string) error {
	client := &http.Client{}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("bundle download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return fmt.Errorf("bundle download failed: %s\n%s", resp.Status, strings.TrimSpace(string(body)))
	}

	return copyWithProgress(resp.Body, dest, resp.ContentLength)
}

// copyWithProgress streams r into a new file at dest, rendering progress on
// stderr.
func copyWithProgress(r io.Reader, dest string, total int64) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dest, err)
	}
	defer out.Close()

	var downloaded int64
	lastPrint := time.Now()
	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write failed: %w", werr)
			}
			downloaded += int64(n)
			if time.Since(lastPrint) > 200*time.Millisecond {
				printDownloadProgress(downloaded, total)
				lastPrint = time.Now()
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return fmt.Errorf("download read failed: %w", rerr)
		}
	}
	printDownloadProgress(downloaded, total)
	fmt.Fprintln(os.Stderr)
	return nil
}

// printDownloadProgress renders a single-line progress indicator to stderr.
func printDownloadProgress(downloaded, total int64) {
	if total > 0 {
		pct := float64(downloaded) / float64(total) * 100
		fmt.Fprintf(os.Stderr, "\rDownloading bundle... %s / %s (%.1f%%)", humanBytes(downloaded), humanBytes(total), pct)
		return
	}
	fmt.Fprintf(os.Stderr, "\rDownloading bundle... %s", humanBytes(downloaded))
}

// humanBytes formats a byte count in a human-friendly binary unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	prefix := "KMGTPE"[exp]
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), prefix)
}

// writableTempBase selects a temp base directory that is very likely to be
// writable.
func writableTempBase() (string, error) {
	candidates := []string{os.TempDir()}
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		candidates = append(candidates, filepath.Join(cacheDir, "ragboot", "tmp"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, ".ragboot", "tmp"))
	}

	for _, base := range candidates {
		if base == "" {
			continue
		}
		if err := os.MkdirAll(base, 0o755); err != nil {
			continue
		}
		probe := filepath.Join(base, ".ragboot-probe-tmp")
		if err := os.WriteFile(probe, []byte(""), 0o644); err != nil {
			continue
		}
		_ = os.Remove(probe)
		return base, nil
	}
	return "", fmt.Errorf("no writable temp directory found")
}
