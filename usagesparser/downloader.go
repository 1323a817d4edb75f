// Package usagesparser loads overrides for the usage fallback table from a
// local TSV file or a remote URL.
package usagesparser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/giygas/medlookup-api/logging"
	"golang.org/x/text/encoding/charmap"
)

const maxTableSize = 8 * 1024 * 1024

// decode returns body as UTF-8. Tables exported from older tools are often
// ISO-8859-1, so anything that is not valid UTF-8 is decoded as Latin-1.
func decode(body []byte) ([]byte, error) {
	if utf8.Valid(body) {
		return body, nil
	}
	decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ISO-8859-1 content: %w", err)
	}
	return decoded, nil
}

// download fetches the table at url
func download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %d", url, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxTableSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxTableSize {
		return nil, fmt.Errorf("usage table at %s exceeds %d bytes", url, maxTableSize)
	}
	return decode(body)
}

// readFile reads the table at path
func readFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", cleanPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("invalid filepath: %s is a directory", cleanPath)
	}
	if info.Size() > maxTableSize {
		return nil, fmt.Errorf("usage table %s exceeds %d bytes", cleanPath, maxTableSize)
	}

	body, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cleanPath, err)
	}
	return decode(body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
