// Package importer turns pasted text, CSV files and parser output into
// reviewable candidate items and commits them to an event.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one raw line from a source, before validation.
type Row struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Category string `json:"category,omitempty"`
}

var (
	bulletRe   = regexp.MustCompile(`^\s*(?:[-*•·]|\[\s?\]|\d+[.)])\s+`)
	leadingXRe = regexp.MustCompile(`^(\d+)\s*[xX×]\s+(.+)$`)
	leadingRe  = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	trailingRe = regexp.MustCompile(`^(.+?)\s*(?:\s[xX×]\s*(\d+)|-\s*(\d+)|\(\s*(\d+)\s*\)|:\s*(\d+))$`)
)

// ParseText reads one item per non-empty line. A quantity may lead
// ("2 x Milk", "2 Milk") or trail ("Milk x2", "Milk - 3", "Milk (3)").
func ParseText(text string) []Row {
	var rows []Row
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}
	return rows
}

func parseLine(line string) Row {
	if m := leadingXRe.FindStringSubmatch(line); m != nil {
		return Row{Name: strings.TrimSpace(m[2]), Quantity: m[1]}
	}
	if m := leadingRe.FindStringSubmatch(line); m != nil {
		return Row{Name: strings.TrimSpace(m[2]), Quantity: m[1]}
	}
	if m := trailingRe.FindStringSubmatch(line); m != nil {
		for _, q := range m[2:] {
			if q != "" {
				return Row{Name: strings.TrimSpace(m[1]), Quantity: q}
			}
		}
	}
	return Row{Name: line}
}

var ErrEmptyFile = errors.New("file is empty")

var headerAliases = map[string]string{
	"name":     "name",
	"item":     "name",
	"quantity": "quantity",
	"qty":      "quantity",
	"amount":   "quantity",
	"category": "category",
}

// getColIndex maps known header names to their column positions. It returns
// false when the first record does not look like a header.
func getColIndex(header []string) (map[string]int, bool) {
	colIndex := make(map[string]int)
	for i, col := range header {
		if key, ok := headerAliases[strings.ToLower(strings.TrimSpace(col))]; ok {
			if _, seen := colIndex[key]; !seen {
				colIndex[key] = i
			}
		}
	}
	_, hasName := colIndex["name"]
	return colIndex, hasName
}

// ParseCSV reads name,quantity,category rows. The header is optional; without
// one the columns are taken positionally. UTF-8 and UTF-16 input with a BOM
// are both accepted.
func ParseCSV(r io.Reader) ([]Row, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(first) == 1 && strings.Contains(first[0], ";") {
		return nil, fmt.Errorf("unsupported delimiter: use commas")
	}

	colIndex, hasHeader := getColIndex(first)
	if !hasHeader {
		colIndex = map[string]int{"name": 0, "quantity": 1, "category": 2}
	}
	field := func(rec []string, key string) string {
		i, ok := colIndex[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	add := func(rec []string) {
		row := Row{Name: field(rec, "name"), Quantity: field(rec, "quantity"), Category: field(rec, "category")}
		if row.Name == "" && row.Quantity == "" && row.Category == "" {
			return
		}
		rows = append(rows, row)
	}
	if !hasHeader {
		add(first)
	}

	line := 1
	for {
		line++
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("Skipping unreadable CSV line", "line", line, "error", err)
			continue
		}
		add(rec)
	}
	return rows, nil
}
