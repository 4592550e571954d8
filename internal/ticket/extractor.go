// Package ticket turns raw receipt text into candidate product line items.
package ticket

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/textnorm"
)

// DefaultMaxItems caps the items returned for one ticket.
const DefaultMaxItems = 30

const (
	minLineLength = 4
	minNameLength = 4
	maxNameLength = 50
	maxNameWords  = 6
)

var (
	priceRe = regexp.MustCompile(`\b(\d+)[,.](\d{2})\b`)

	// Applied in order to derive the product name.
	stripRules = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{re: regexp.MustCompile(`\d+[,.]\d+\s*€?`), repl: ""},
		{re: regexp.MustCompile(`^\d+\s*(?:[xX]\s+)?`), repl: ""},
		{re: regexp.MustCompile(`(?i)\s+\d+\s*(g|kg|ml|l|ud|uds|gr)\.?\s*$`), repl: ""},
		{re: regexp.MustCompile(`\s*\.\.\.\s*$`), repl: ""},
		{re: regexp.MustCompile(`\*+`), repl: ""},
		{re: regexp.MustCompile(`\s+`), repl: " "},
	}

	unitFragmentRe = regexp.MustCompile(`(?i)^[a-z]{1,3}\s*/\s*[a-z]{1,3}$`)
)

// Drop reasons reported by Inspect.
const (
	ReasonAccepted  = ""
	ReasonTooShort  = "too short"
	ReasonNoise     = "noise pattern"
	ReasonKeyword   = "excluded keyword"
	ReasonBadName   = "no usable name"
	ReasonDuplicate = "duplicate"
	ReasonOverLimit = "over item limit"
)

type compiledPattern struct {
	re *regexp.Regexp
	NoisePattern
}

// Extractor filters ticket noise and extracts (name, price) line items.
// An Extractor is safe for concurrent use.
type Extractor struct {
	logger   *slog.Logger
	exclude  map[string]bool
	noise    []compiledPattern
	maxItems int
}

// NewExtractor compiles set. A maxItems of zero or less uses DefaultMaxItems.
func NewExtractor(set PatternSet, maxItems int, logger *slog.Logger) (*Extractor, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	e := &Extractor{
		logger:   common.LoggerOrDefault(logger).With("component", "ticket"),
		exclude:  make(map[string]bool, len(set.ExcludeKeywords)),
		noise:    make([]compiledPattern, 0, len(set.Noise)),
		maxItems: maxItems,
	}

	for _, p := range set.Noise {
		compiled, err := common.CompileAll([]string{p.Regex}, !p.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("noise pattern %q: %w", p.Name, err)
		}
		e.noise = append(e.noise, compiledPattern{NoisePattern: p, re: compiled[0]})
	}

	for _, kw := range set.ExcludeKeywords {
		if kw = textnorm.Normalize(strings.TrimSpace(kw)); kw != "" {
			e.exclude[kw] = true
		}
	}

	return e, nil
}

// NewDefaultExtractor returns an extractor over the built-in tables.
func NewDefaultExtractor() *Extractor {
	e, err := NewExtractor(DefaultPatternSet(), DefaultMaxItems, nil)
	if err != nil {
		panic(fmt.Sprintf("built-in ticket patterns do not compile: %v", err))
	}
	return e
}

// Extract returns the accepted line items of text in order, capped at the
// configured maximum.
func (e *Extractor) Extract(text string) []model.TicketLineItem {
	var items []model.TicketLineItem
	for _, r := range e.Inspect(text) {
		if r.Reason == ReasonAccepted {
			items = append(items, *r.Item)
		}
	}
	return items
}

// LineReport explains what happened to one ticket line.
type LineReport struct {
	Item    *model.TicketLineItem
	Line    string
	Reason  string
	Pattern string
}

// Inspect reports the outcome of every non-empty line of text.
func (e *Extractor) Inspect(text string) []LineReport {
	var (
		reports  []LineReport
		accepted int
		seen     = make(map[string]bool)
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		report := e.inspectLine(line)
		if report.Reason == ReasonAccepted {
			switch {
			case seen[report.Item.Name]:
				report.Reason = ReasonDuplicate
			case accepted >= e.maxItems:
				report.Reason = ReasonOverLimit
			default:
				seen[report.Item.Name] = true
				accepted++
			}
		}

		if report.Reason != ReasonAccepted {
			e.logger.Debug("Dropped ticket line", "line", line, "reason", report.Reason, "pattern", report.Pattern)
		}
		reports = append(reports, report)
	}

	return reports
}

func (e *Extractor) inspectLine(line string) LineReport {
	report := LineReport{Line: line}

	if len([]rune(line)) < minLineLength {
		report.Reason = ReasonTooShort
		return report
	}

	for _, p := range e.noise {
		if p.re.MatchString(line) {
			report.Reason = ReasonNoise
			report.Pattern = p.Name
			return report
		}
	}

	for _, word := range textnorm.Words(line) {
		if e.exclude[word] {
			report.Reason = ReasonKeyword
			report.Pattern = word
			return report
		}
	}

	name := cleanName(line)
	if !acceptableName(name) {
		report.Reason = ReasonBadName
		return report
	}

	report.Item = &model.TicketLineItem{
		RawLine: line,
		Name:    name,
		Price:   ExtractPrice(line),
	}
	return report
}

// ExtractPrice returns the unit price on a ticket line. When a line carries
// both a unit price and a line total, the first amount is the unit price.
func ExtractPrice(line string) *float64 {
	m := priceRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1]+"."+m[2], 64)
	if err != nil {
		return nil
	}
	return &v
}

func cleanName(line string) string {
	name := line
	for _, rule := range stripRules {
		name = rule.re.ReplaceAllString(name, rule.repl)
	}
	return strings.TrimSpace(name)
}

func acceptableName(name string) bool {
	n := len([]rune(name))
	switch {
	case n < minNameLength || n > maxNameLength:
		return false
	case !textnorm.HasLetter(name):
		return false
	case textnorm.IsDigits(name):
		return false
	case strings.Contains(name, "****"):
		return false
	case len(strings.Fields(name)) > maxNameWords:
		return false
	case unitFragmentRe.MatchString(name):
		return false
	}
	return true
}
