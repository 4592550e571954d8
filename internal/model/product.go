package model

// Product is a single catalog entry. Products are immutable within a
// catalog snapshot and replaced wholesale on reload.
type Product struct {
	PreviousPrice *float64
	BulkPrice     *float64
	ID            string
	Name          string
	CategoryL1    string
	CategoryL2    string
	CategoryL3    string
	Packaging     string
	ImageRef      string
	ShareURL      string
	SizeFormat    string
	Price         float64
	UnitSize      float64
	IVA           int
	IsNew         bool
	HasDiscount   bool
	IsPack        bool
}

// HasPrice reports whether the catalog knows the current price.
func (p *Product) HasPrice() bool {
	return p.Price > 0
}

// CategoryPath returns the L1/L2/L3 path, skipping empty levels.
func (p *Product) CategoryPath() string {
	path := ""
	for _, level := range []string{p.CategoryL1, p.CategoryL2, p.CategoryL3} {
		if level == "" {
			continue
		}
		if path != "" {
			path += " > "
		}
		path += level
	}
	return path
}

// CategoryNode is one top-level category with its subcategories.
type CategoryNode struct {
	Name          string
	Subcategories []SubcategoryNode
	ProductCount  int
}

// SubcategoryNode is a second-level category.
type SubcategoryNode struct {
	Name         string
	ProductCount int
}

// ProductGroup holds the products of one third-level category.
type ProductGroup struct {
	Name     string
	Products []Product
}
