package model

// DateLayout is the calendar-day format used for price history dates.
const DateLayout = "2006-01-02"

// PricePoint is one daily price observation.
type PricePoint struct {
	Date  string
	Price float64
}

// PriceTrend summarizes a product's price series.
type PriceTrend struct {
	ProductID   string
	FirstDate   string
	LastDate    string
	First       float64
	Last        float64
	Min         float64
	Max         float64
	ChangeRatio float64
	Points      int
}
