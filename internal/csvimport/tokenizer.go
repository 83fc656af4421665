// Package csvimport turns uploaded CSV or XLSX content into header-normalised records.
package csvimport

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ParseLine splits a single CSV line into fields.
//
// Unquoted fields are trimmed. Inside quotes a doubled quote is a literal quote
// and everything else, commas included, is kept verbatim. An unterminated quote
// runs to the end of the line. The last field is always emitted, so an empty
// line yields one empty field.
func ParseLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case inQuotes && ch == '"':
			if i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = false
		case inQuotes:
			current.WriteRune(ch)
		case ch == '"':
			inQuotes = true
		case ch == ',':
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// SplitLines breaks text into lines and drops the ones that are blank once trimmed.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// Records tokenizes every non-blank line of text.
func Records(text string) [][]string {
	lines := SplitLines(text)
	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		records = append(records, ParseLine(line))
	}
	return records
}

// Decode reads an upload as text, honouring and stripping a UTF-8 or UTF-16 BOM.
func Decode(r io.Reader) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	body, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
