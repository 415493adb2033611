package importer

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"potluck/models"
)

const (
	MinQuantity   = 1
	MaxQuantity   = 100
	minNameLength = 2
)

// Fallback categories for rows whose category is missing or not configured.
const (
	FallbackAI   = models.CategoryOther
	FallbackFile = models.CategoryMain
)

// Candidate is a validated row the organizer can review before commit. Rows
// with an Error are deselected and cannot be committed until fixed.
type Candidate struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Category   string `json:"category"`
	IsRequired bool   `json:"isRequired,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Selected   bool   `json:"selected"`
	Error      string `json:"error,omitempty"`
}

// Committable reports whether c may be written.
func (c Candidate) Committable() bool {
	return c.Selected && c.Error == ""
}

// Normalize validates rows and resolves categories against the event's
// configuration. Unparsable quantities become 1; out of range quantities and
// short names flag the row.
func Normalize(rows []Row, categories []models.CategoryConfig, fallback string) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalizeRow(row, categories, fallback))
	}
	return out
}

func normalizeRow(row Row, categories []models.CategoryConfig, fallback string) Candidate {
	c := Candidate{
		Name:     strings.TrimSpace(row.Name),
		Quantity: 1,
		Category: resolveCategory(row.Category, categories, fallback),
		Selected: true,
	}
	if q, err := strconv.Atoi(strings.TrimSpace(row.Quantity)); err == nil {
		c.Quantity = q
	}
	c.Error = validate(c)
	if c.Error != "" {
		c.Selected = false
	}
	return c
}

func validate(c Candidate) string {
	switch {
	case c.Name == "":
		return "name is required"
	case len([]rune(c.Name)) < minNameLength:
		return "name must be at least 2 characters"
	case c.Quantity < MinQuantity || c.Quantity > MaxQuantity:
		return "quantity must be between 1 and 100"
	}
	return ""
}

// Revalidate re-runs the row checks after the organizer edited a candidate.
// A fixed row is not reselected automatically.
func Revalidate(c Candidate) Candidate {
	c.Name = strings.TrimSpace(c.Name)
	c.Error = validate(c)
	if c.Error != "" {
		c.Selected = false
	}
	return c
}

// resolveCategory accepts a configured category id, or a configured
// category name, compared case-insensitively.
func resolveCategory(raw string, categories []models.CategoryConfig, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	key := foldKey(raw)
	for _, cat := range categories {
		if foldKey(cat.ID) == key || foldKey(cat.Name) == key {
			return cat.ID
		}
	}
	return fallback
}

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// PartitionDuplicates splits candidates by whether an item with the same
// name, ignoring case and surrounding space, is already on the menu.
func PartitionDuplicates(candidates []Candidate, existing []models.MenuItem) (fresh, duplicates []Candidate) {
	names := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		names[foldKey(item.Name)] = struct{}{}
	}
	fresh = []Candidate{}
	duplicates = []Candidate{}
	for _, c := range candidates {
		if _, dup := names[foldKey(c.Name)]; dup {
			duplicates = append(duplicates, c)
		} else {
			fresh = append(fresh, c)
		}
	}
	return fresh, duplicates
}

func menuItems(ev *models.Event) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(ev.MenuItems))
	for _, item := range ev.MenuItems {
		out = append(out, item)
	}
	return out
}
