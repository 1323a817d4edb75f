package usagesparser

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/giygas/medlookup-api/interfaces"
	"github.com/giygas/medlookup-api/logging"
)

// Compile-time check to ensure UsagesParser implements Parser interface
var _ interfaces.Parser = (*UsagesParser)(nil)

// ErrNoSource is returned when neither a file nor a URL is configured
var ErrNoSource = errors.New("no usage table source configured")

// UsagesParser reads override entries from a file, a URL, or both. When both
// are set the URL entries are applied after the file entries.
type UsagesParser struct {
	filePath string
	url      string
	client   *http.Client
}

// NewUsagesParser creates a parser. Either argument may be empty.
func NewUsagesParser(filePath, url string) *UsagesParser {
	return &UsagesParser{
		filePath: filePath,
		url:      url,
		client:   newHTTPClient(),
	}
}

// WithHTTPClient replaces the client used for URL sources
func (p *UsagesParser) WithHTTPClient(client *http.Client) *UsagesParser {
	p.client = client
	return p
}

// HasSource reports whether any source is configured
func (p *UsagesParser) HasSource() bool {
	return p.filePath != "" || p.url != ""
}

// ParseUsages implements the Parser interface
func (p *UsagesParser) ParseUsages() (map[string]string, error) {
	return p.ParseUsagesContext(context.Background())
}

// ParseUsagesContext reads every configured source. Any failing source fails
// the whole parse so a reload never applies half a table.
func (p *UsagesParser) ParseUsagesContext(ctx context.Context) (map[string]string, error) {
	if !p.HasSource() {
		return nil, ErrNoSource
	}

	usages := make(map[string]string)

	if p.filePath != "" {
		content, err := readFile(p.filePath)
		if err != nil {
			return nil, err
		}
		entries, err := parseTSV(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p.filePath, err)
		}
		maps.Copy(usages, entries)
		logging.Info("Loaded usage table file", "path", p.filePath, "entries", len(entries))
	}

	if p.url != "" {
		content, err := download(ctx, p.client, p.url)
		if err != nil {
			return nil, err
		}
		entries, err := parseTSV(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p.url, err)
		}
		maps.Copy(usages, entries)
		logging.Info("Downloaded usage table", "url", p.url, "entries", len(entries))
	}

	return usages, nil
}
