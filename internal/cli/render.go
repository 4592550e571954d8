package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/search"
	"github.com/charmbracelet/lipgloss"
)

const maxNameWidth = 44

// FormatPrice renders a euro amount the way tickets print it.
func FormatPrice(price float64) string {
	return strings.Replace(fmt.Sprintf("%.2f €", price), ".", ",", 1)
}

// FormatOptionalPrice renders a price or a dash when it is unknown.
func FormatOptionalPrice(price *float64) string {
	if price == nil {
		return "-"
	}
	return FormatPrice(*price)
}

func formatProductPrice(p *model.Product) string {
	if !p.HasPrice() {
		return "-"
	}
	return FormatPrice(p.Price)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// renderTable lays rows out in left-aligned columns sized to their widest
// cell.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	lines := []string{renderRow(headers, TableHeaderStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderSearchResults prints ranked search hits as a table.
func RenderSearchResults(w io.Writer, query string, hits []search.Hit) error {
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, FormatWarning(fmt.Sprintf("No products found for %q", query)))
		return err
	}

	rows := make([][]string, len(hits))
	for i, h := range hits {
		rows[i] = []string{
			h.Product.ID,
			truncate(h.Product.Name, maxNameWidth),
			formatProductPrice(h.Product),
			h.Product.CategoryL2,
			fmt.Sprint(h.Score),
		}
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", FormatTitle(fmt.Sprintf("%s %d results for %q", SearchIcon, len(hits), query)),
		renderTable([]string{"ID", "Product", "Price", "Category", "Score"}, rows))
	return err
}

// RenderLineItems prints extracted ticket line items.
func RenderLineItems(w io.Writer, items []model.TicketLineItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, FormatWarning("No line items found in ticket"))
		return err
	}

	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{fmt.Sprint(i + 1), it.Name, FormatOptionalPrice(it.Price)}
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"#", "Item", "Price"}, rows))
	return err
}

// RenderTicketMatch prints the outcome of matching one ticket.
func RenderTicketMatch(w io.Writer, source string, m model.TicketMatch) error {
	var b strings.Builder

	b.WriteString(FormatTitle(fmt.Sprintf("%s %s", ReceiptIcon, source)))
	b.WriteString("\n")
	if !m.CatalogAvailable {
		b.WriteString(FormatWarning("No catalog loaded; every item is unmatched"))
		b.WriteString("\n")
	}

	for i := range m.Matches {
		b.WriteString(formatMatch(&m.Matches[i]))
	}

	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%s %d of %d items matched · ticket %s",
		ChartIcon, m.MatchedCount(), len(m.Matches), m.TicketID)))
	b.WriteString("\n")

	_, err := fmt.Fprint(w, b.String())
	return err
}

func formatMatch(r *model.MatchResult) string {
	var b strings.Builder
	item := fmt.Sprintf("%s (%s)", BoldStyle.Render(r.IngredientName), FormatOptionalPrice(r.TicketPrice))

	switch {
	case r.Matched():
		flags := []string{string(r.Source), fmt.Sprintf("score %d", r.MatchScore)}
		if r.HasPriceMatch {
			flags = append(flags, "price ok")
		}
		line := fmt.Sprintf("%s %s → %s %s [%s]", SuccessIcon, item,
			r.MatchedProduct.Name, formatProductPrice(r.MatchedProduct), strings.Join(flags, ", "))
		b.WriteString(SuccessStyle.Render(line))
		if r.PriceMismatch {
			b.WriteString(" " + WarningStyle.Render("price changed"))
		}
		b.WriteString("\n")
		for _, alt := range r.Alternates {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("    also: %s %s", alt.Name, formatProductPrice(&alt))))
			b.WriteString("\n")
		}
	case r.NeedsReview:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%s %s needs review", ReviewIcon, item)))
		b.WriteString("\n")
		for _, s := range r.Suggestions {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("    %s  %s %s", s.ID, s.Name, formatProductPrice(&s))))
			b.WriteString("\n")
		}
	default:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s %s unmatched", ErrorIcon, item)))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderHistory prints a price series.
func RenderHistory(w io.Writer, productID string, points []model.PricePoint) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, FormatWarning(fmt.Sprintf("No price history for %s", productID)))
		return err
	}

	rows := make([][]string, len(points))
	for i, p := range points {
		rows[i] = []string{p.Date, FormatPrice(p.Price)}
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", FormatTitle(fmt.Sprintf("%s Price history for %s", ChartIcon, productID)),
		renderTable([]string{"Date", "Price"}, rows))
	return err
}

// RenderTrend prints a price trend summary.
func RenderTrend(w io.Writer, t model.PriceTrend) error {
	change := fmt.Sprintf("%+.1f%%", t.ChangeRatio*100)
	switch {
	case t.ChangeRatio > 0:
		change = ErrorStyle.Render(change)
	case t.ChangeRatio < 0:
		change = SuccessStyle.Render(change)
	}

	content := fmt.Sprintf("  %s → %s: %s → %s (%s)\n", t.FirstDate, t.LastDate, FormatPrice(t.First), FormatPrice(t.Last), change) +
		fmt.Sprintf("  Min: %s  Max: %s\n", FormatPrice(t.Min), FormatPrice(t.Max)) +
		fmt.Sprintf("  Points: %d", t.Points)

	_, err := fmt.Fprintln(w, RenderBox(fmt.Sprintf("%s Price trend for %s", ChartIcon, t.ProductID), content))
	return err
}

// RenderAssociations prints stored associations.
func RenderAssociations(w io.Writer, list []model.Association) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No associations recorded yet"))
		return err
	}

	rows := make([][]string, len(list))
	for i, a := range list {
		rows[i] = []string{a.Key, a.ProductID, truncate(a.OriginalProductName, maxNameWidth), string(a.Source), a.SavedAt.Format("2006-01-02 15:04")}
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"Ticket text", "Product", "Name", "Source", "Saved"}, rows))
	return err
}

// RenderCategories prints the category tree.
func RenderCategories(w io.Writer, nodes []model.CategoryNode) error {
	var b strings.Builder
	b.WriteString(FormatTitle("Categories"))
	b.WriteString("\n")
	for _, n := range nodes {
		b.WriteString(BoldStyle.Render(fmt.Sprintf("%s (%d)", n.Name, n.ProductCount)))
		b.WriteString("\n")
		for _, sub := range n.Subcategories {
			b.WriteString(fmt.Sprintf("  • %s %s\n", sub.Name, SubtleStyle.Render(fmt.Sprintf("(%d)", sub.ProductCount))))
		}
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}

// RenderSubcategory prints the products of one subcategory grouped by
// their third-level category.
func RenderSubcategory(w io.Writer, name string, groups []model.ProductGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, FormatWarning(fmt.Sprintf("No products in %q", name)))
		return err
	}

	var b strings.Builder
	b.WriteString(FormatTitle(name))
	b.WriteString("\n")
	for _, g := range groups {
		b.WriteString(BoldStyle.Render(g.Name))
		b.WriteString("\n")
		for i := range g.Products {
			p := &g.Products[i]
			b.WriteString(fmt.Sprintf("  %s  %s %s\n", SubtleStyle.Render(p.ID), p.Name, formatProductPrice(p)))
		}
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}
