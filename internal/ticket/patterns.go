package ticket

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pattern groups.
const (
	GroupMetadata = "metadata"
	GroupAddress  = "address"
	GroupPhone    = "phone"
	GroupPayment  = "payment"
	GroupLegal    = "legal"
	GroupNumeric  = "numeric"
	GroupHeader   = "header"
	GroupArtifact = "artifact"
)

// NoisePattern is one regular expression that marks a ticket line as
// store metadata rather than a product.
type NoisePattern struct {
	Name          string `yaml:"name"`
	Group         string `yaml:"group"`
	Regex         string `yaml:"regex"`
	CaseSensitive bool   `yaml:"case_sensitive"`
}

// PatternSet is the full noise configuration of an extractor.
type PatternSet struct {
	Noise           []NoisePattern `yaml:"noise"`
	ExcludeKeywords []string       `yaml:"exclude_keywords"`
	// Replace discards the defaults instead of extending them when the set
	// is loaded from a file.
	Replace bool `yaml:"replace"`
}

// DefaultPatternSet returns the built-in noise tables.
func DefaultPatternSet() PatternSet {
	return PatternSet{
		Noise:           DefaultNoisePatterns(),
		ExcludeKeywords: DefaultExcludeKeywords(),
	}
}

// DefaultNoisePatterns returns the built-in line filters. Patterns are
// case-insensitive unless marked otherwise.
func DefaultNoisePatterns() []NoisePattern {
	return []NoisePattern{
		// Store and transaction data
		{Name: "totals", Group: GroupMetadata, Regex: `^(total|subtotal|iva|dto|descuento|tarjeta|efectivo|cambio|ticket|factura|mercadona)`},
		{Name: "store fields", Group: GroupMetadata, Regex: `^(nif|cif|direccion|dirección|telefono|teléfono|hora|fecha|op:|gracias|cliente|simplificada)`},
		{Name: "bags", Group: GroupMetadata, Regex: `^(\d+\s*(x\s+)?)?(rollo|bolsa)`},
		{Name: "columns", Group: GroupMetadata, Regex: `^(descripcion|descripción|importe|p\.\s*unit)`},

		// Addresses and localities
		{Name: "street", Group: GroupAddress, Regex: `^(c/|c\.\s|c\.º|cº|calle\b|avda\.?\s|avenida\b|plaza\b|paseo\b|camino\b|pol[íi]gono\b)`},
		{Name: "city", Group: GroupAddress, Regex: `\b(moralzarzal|madrid|barcelona|valencia|sevilla|bilbao|zaragoza)\b`},
		{Name: "postal", Group: GroupAddress, Regex: `\bs/n\b|\bc\.p\.?|código postal|codigo postal|\d{5}\s*(madrid|barcelona)`},

		// Phone numbers
		{Name: "phone label", Group: GroupPhone, Regex: `tel[ée]fono|\btfno\b\.?|\btelf\b\.?`},
		{Name: "phone number", Group: GroupPhone, Regex: `^\d{9}$`},
		{Name: "landline", Group: GroupPhone, Regex: `^9\d{8}$`},
		{Name: "mobile", Group: GroupPhone, Regex: `^6\d{8}$`},

		// Payment and card data
		{Name: "card brand", Group: GroupPayment, Regex: `tarj\.?\s*bancaria|mastercard|\bvisa\b|maestro|\bamex\b`},
		{Name: "card mask", Group: GroupPayment, Regex: `\*{4}\s*\*{4}\s*\*{4}`},
		{Name: "authorization", Group: GroupPayment, Regex: `\bn\.?c:?\s*\d+|\baut:?\s*\d+|\baid:?\s*[a-f0-9]+|\barc:?\s*\d+`},

		// Legal boilerplate
		{Name: "returns", Group: GroupLegal, Regex: `se admiten devoluciones`},
		{Name: "keep ticket", Group: GroupLegal, Regex: `conserve este ticket`},
		{Name: "thanks", Group: GroupLegal, Regex: `gracias por su compra`},
		{Name: "simplified invoice", Group: GroupLegal, Regex: `factura simplificada`},

		// Numbers and codes
		{Name: "numeric only", Group: GroupNumeric, Regex: `^[\d\s€,.\-:/]+$`},
		{Name: "date", Group: GroupNumeric, Regex: `^\d{2}/\d{2}/\d{4}`},
		{Name: "tax id", Group: GroupNumeric, Regex: `^[A-Z]-?\d{8}`, CaseSensitive: true},
		{Name: "long code", Group: GroupNumeric, Regex: `^\d{6,}`},

		// Table headers
		{Name: "description header", Group: GroupHeader, Regex: `^descripci[oó]n.*importe`},
		{Name: "unit price header", Group: GroupHeader, Regex: `^p\.?\s*unit`},

		// Scanner artifacts
		{Name: "page marker", Group: GroupArtifact, Regex: `^p[áa]g(ina)?\.?\s*\d+`},
		{Name: "verified stamp", Group: GroupArtifact, Regex: `verificad[oa]|\bverified\b`},
		{Name: "unit fragment", Group: GroupArtifact, Regex: `^(kg|g|gr|l|ml|ud|uds)\s*/\s*(kg|g|gr|l|ml|ud|uds)$`},
	}
}

// DefaultExcludeKeywords returns words that disqualify a line wherever they
// appear in it. Keywords are compared against normalized words, not
// substrings, so "oliva" survives the "iva" keyword.
func DefaultExcludeKeywords() []string {
	return []string{
		"telefono", "teléfono", "direccion", "dirección", "calle", "avenida",
		"bancaria", "mastercard", "visa", "devoluciones", "ticket", "factura",
		"importe", "total", "subtotal", "cambio", "efectivo", "iva",
		"linares", "moralzarzal", "madrid", "barcelona",
	}
}

// LoadPatternSet reads a YAML pattern file. Unless the file sets replace,
// its patterns and keywords are appended to the defaults.
func LoadPatternSet(path string) (PatternSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return PatternSet{}, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var file PatternSet
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PatternSet{}, fmt.Errorf("failed to parse pattern file %s: %w", path, err)
	}

	if file.Replace {
		return file, nil
	}

	set := DefaultPatternSet()
	set.Noise = append(set.Noise, file.Noise...)
	set.ExcludeKeywords = append(set.ExcludeKeywords, file.ExcludeKeywords...)
	return set, nil
}
