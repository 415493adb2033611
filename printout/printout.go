// Package printout renders the printable event sheet and the join QR code.
package printout

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"potluck/models"
	"potluck/reconcile"
)

// JoinURL is the link participants open to reach an event.
func JoinURL(baseURL, eventID string) string {
	return strings.TrimRight(baseURL, "/") + "/event/" + eventID
}

// JoinQR returns a PNG QR code for url.
func JoinQR(url string, size int) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func claimants(ev *models.Event, itemID string) string {
	held := reconcile.AssignmentsFor(ev, itemID)
	names := make([]string, 0, len(held))
	for _, a := range held {
		if len(held) > 1 {
			names = append(names, fmt.Sprintf("%s (%d)", a.UserName, a.Quantity))
		} else {
			names = append(names, a.UserName)
		}
	}
	return strings.Join(names, ", ")
}

// itemsByCategory groups items in category display order; unconfigured
// categories come last.
func itemsByCategory(ev *models.Event) []struct {
	title string
	items []models.MenuItem
} {
	stats := reconcile.CategoryProgress(ev)
	index := map[string]int{}
	groups := make([]struct {
		title string
		items []models.MenuItem
	}, len(stats))
	for i, st := range stats {
		groups[i].title = st.Name
		if st.CategoryID != "" {
			index[st.CategoryID] = i
		}
	}
	for _, item := range ev.MenuItems {
		i, ok := index[item.Category]
		if !ok {
			i = len(groups) - 1
		}
		groups[i].items = append(groups[i].items, item)
	}
	for i := range groups {
		sort.Slice(groups[i].items, func(a, b int) bool {
			x, y := groups[i].items[a], groups[i].items[b]
			if x.IsRequired != y.IsRequired {
				return x.IsRequired
			}
			return x.Name < y.Name
		})
	}
	return groups
}

// EventSheet writes an A4 PDF with the event details, every item with its
// requested, filled and remaining quantity and who brings it, and the join QR.
func EventSheet(w io.Writer, ev *models.Event, joinURL string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(ev.Details.Title), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(ev.Details.Title))
	pdf.Ln(11)

	pdf.SetFont("Arial", "", 11)
	when := strings.TrimSpace(ev.Details.Date + " " + ev.Details.Time)
	if when != "" {
		pdf.Cell(0, 6, tr("When: "+when))
		pdf.Ln(6)
	}
	if ev.Details.Location != "" {
		pdf.Cell(0, 6, tr("Where: "+ev.Details.Location))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, tr("Organizer: "+ev.OrganizerName))
	pdf.Ln(6)

	if joinURL != "" {
		png, err := JoinQR(joinURL, 256)
		if err != nil {
			return err
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("join-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("join-qr", 160, 10, 35, 35, false, opts, 0, "")
	}
	pdf.Ln(8)

	widths := []float64{70, 20, 20, 22, 58}
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		for i, h := range []string{"Item", "Needed", "Filled", "Remaining", "Brought by"} {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
	}

	if len(ev.MenuItems) == 0 {
		pdf.Cell(0, 8, "No items yet.")
	}
	for _, group := range itemsByCategory(ev) {
		if len(group.items) == 0 {
			continue
		}
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(0, 9, tr(group.title))
		pdf.Ln(9)
		header()
		for _, item := range group.items {
			av := reconcile.ItemAvailability(ev, item)
			name := item.Name
			if item.IsRequired {
				name += " *"
			}
			pdf.CellFormat(widths[0], 7, tr(name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 7, fmt.Sprint(item.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[2], 7, fmt.Sprint(av.Filled), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[3], 7, fmt.Sprint(av.Remaining), "1", 0, "C", false, 0, "")
			pdf.CellFormat(widths[4], 7, tr(claimants(ev, item.ID)), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 6, "* required")
	return pdf.Output(w)
}
