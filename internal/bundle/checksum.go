package bundle

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var errSidecarMissing = errors.New("checksum sidecar not found")

// verifySidecar fetches `<url>.sha256` and compares it against the archive
// at archivePath. A missing sidecar (404) is tolerated with a warning; a
// mismatch is fatal.
func verifySidecar(ctx context.Context, url, archivePath string) error {
	expected, err := fetchExpectedSHA256(ctx, url+".sha256")
	if err != nil {
		if errors.Is(err, errSidecarMissing) {
			fmt.Fprintln(os.Stderr, "warning: no .sha256 sidecar published for bundle; skipping checksum verification")
			return nil
		}
		return err
	}
	actual, err := fileSHA256Hex(archivePath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(expected, actual) {
		return fmt.Errorf("bundle checksum mismatch\nexpected: %s\nactual:   %s", expected, actual)
	}
	return nil
}

// fetchExpectedSHA256 downloads a sha256 sidecar and returns the hex digest.
func fetchExpectedSHA256(ctx context.Context, sidecarURL string) (string, error) {
	client := &http.Client{}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sidecarURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("checksum download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", errSidecarMissing
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", fmt.Errorf("checksum download failed: %s\n%s", resp.Status, strings.TrimSpace(string(body)))
	}

	return parseSidecarSHA256(resp.Body)
}

// parseSidecarSHA256 parses a sha256 sidecar stream. Accepted forms are a
// bare hex digest or the `sha256sum` output `<hex>  <filename>`; the first
// parseable line wins.
func parseSidecarSHA256(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		h := strings.TrimPrefix(fields[0], "\\")
		if len(h) != 64 {
			continue
		}
		if _, err := hex.DecodeString(h); err != nil {
			continue
		}
		return strings.ToLower(h), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("checksum parse failed: %w", err)
	}
	return "", fmt.Errorf("no sha256 digest found in sidecar")
}

// fileSHA256Hex returns the SHA256 checksum of a file as lowercase hex.
func fileSHA256Hex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
