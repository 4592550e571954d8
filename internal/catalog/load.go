package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/cesta/internal/model"
)

// dump mirrors the JSON written by the catalog sync job.
type dump struct {
	UpdatedAt     string       `json:"ultima_actualizacion"`
	Products      []dumpRecord `json:"productos"`
	TotalProducts int          `json:"total_productos"`
}

type dumpRecord struct {
	PreviousPrice *flexNumber `json:"precio_anterior"`
	BulkPrice     *flexNumber `json:"precio_bulk"`
	ID            flexString  `json:"id"`
	Name          string      `json:"nombre"`
	CategoryL1    string      `json:"categoria_L1"`
	CategoryL2    string      `json:"categoria_L2"`
	CategoryL3    string      `json:"categoria_L3"`
	Packaging     string      `json:"packaging"`
	SizeFormat    string      `json:"size_format"`
	ShareURL      string      `json:"url"`
	ImageRef      string      `json:"imagen"`
	Price         flexNumber  `json:"precio"`
	UnitSize      flexNumber  `json:"unit_size"`
	IVA           flexNumber  `json:"iva"`
	IsNew         bool        `json:"es_nuevo"`
	HasDiscount   bool        `json:"tiene_descuento"`
	IsPack        bool        `json:"es_pack"`
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// flexNumber accepts numbers, numeric strings (decimal comma allowed),
// empty strings and null. Unparseable values decode as zero.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexNumber(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexNumber(v)
	return nil
}

func optional(n *flexNumber) *float64 {
	if n == nil || *n <= 0 {
		return nil
	}
	v := float64(*n)
	return &v
}

// Decode reads a product dump and builds a catalog from it.
func Decode(r io.Reader) (*Catalog, error) {
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	var updatedAt time.Time
	if d.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, d.UpdatedAt); err == nil {
			updatedAt = t
		}
	}

	products := make([]model.Product, 0, len(d.Products))
	for _, rec := range d.Products {
		products = append(products, model.Product{
			ID:            string(rec.ID),
			Name:          strings.TrimSpace(rec.Name),
			CategoryL1:    rec.CategoryL1,
			CategoryL2:    rec.CategoryL2,
			CategoryL3:    rec.CategoryL3,
			Price:         float64(rec.Price),
			PreviousPrice: optional(rec.PreviousPrice),
			BulkPrice:     optional(rec.BulkPrice),
			Packaging:     rec.Packaging,
			ImageRef:      rec.ImageRef,
			ShareURL:      rec.ShareURL,
			UnitSize:      float64(rec.UnitSize),
			SizeFormat:    rec.SizeFormat,
			IVA:           int(rec.IVA),
			IsNew:         rec.IsNew,
			HasDiscount:   rec.HasDiscount,
			IsPack:        rec.IsPack,
		})
	}

	return New(products, updatedAt), nil
}

// LoadFile reads a product dump from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
