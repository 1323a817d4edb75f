package usagesparser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/giygas/medlookup-api/entities"
	"github.com/giygas/medlookup-api/logging"
)

// parseTSV reads "name<TAB>usage" lines. Blank lines, lines starting with '#'
// and lines without both columns are skipped. Names are normalized; a later
// line wins over an earlier one for the same name.
func parseTSV(content []byte) (map[string]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	usages := make(map[string]string)
	lineCount := 0
	skippedEmptyLines := 0
	skippedMissingColumns := 0

	for scanner.Scan() {
		lineCount++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			skippedEmptyLines++
			continue
		}

		name, usage, found := strings.Cut(line, "\t")
		name = entities.NormalizeName(name)
		usage = strings.TrimSpace(usage)
		if !found || name == "" || usage == "" {
			skippedMissingColumns++
			continue
		}

		usages[name] = usage
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error at line %d: %w", lineCount, err)
	}

	if skippedMissingColumns > 0 {
		logging.Warn("Skipped malformed usage table lines",
			"lines", lineCount,
			"skipped_missing_columns", skippedMissingColumns,
		)
	}
	logging.Debug("Usage table parsed",
		"entries", len(usages),
		"lines", lineCount,
		"skipped_empty", skippedEmptyLines,
	)
	return usages, nil
}
