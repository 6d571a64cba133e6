package shipper

import (
	"math"
	"sort"
	"time"
)

// PackageType represents the type of package.
type PackageType string

const (
	PackageBox      PackageType = "box"
	PackageEnvelope PackageType = "envelope"
	PackageCustom   PackageType = "custom"
)

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightOZ WeightUnit = "oz"
	WeightLB WeightUnit = "lb"
	WeightKG WeightUnit = "kg"
	WeightG  WeightUnit = "g"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionIN DimensionUnit = "in"
	DimensionCM DimensionUnit = "cm"
)

// LabelFormat represents the format of shipping labels.
type LabelFormat string

const (
	LabelPDF  LabelFormat = "PDF"
	LabelPNG  LabelFormat = "PNG"
	LabelGIF  LabelFormat = "GIF"
	LabelZPL  LabelFormat = "ZPLII"
	LabelEPL2 LabelFormat = "EPL2"
)

const (
	ouncesPerPound   = 16.0
	gramsPerOunce    = 28.349523125
	centimetersPerIn = 2.54
)

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(math.Round(m.Amount * 100))
}

// CustomsDeclaration is one customs line for a package.
type CustomsDeclaration struct {
	Description string
	Quantity    int
}

// Package represents a package to be shipped.
type Package struct {
	Weight        float64    `validate:"gte=0"`
	WeightUnit    WeightUnit `validate:"omitempty,oneof=oz lb kg g"`
	Length        float64    `validate:"gte=0"`
	Width         float64    `validate:"gte=0"`
	Height        float64    `validate:"gte=0"`
	DimensionUnit DimensionUnit
	// PackageType is a generic tag or a carrier mailpiece shape such as
	// "FlatRateEnvelope".
	PackageType        PackageType
	DeclaredValueCents int64
	InsuredValueCents  int64
	Currency           string
	Customs            []CustomsDeclaration
	Reference1         string // invoice number
	Reference2         string // customer reference
	CostCents          int64
}

// Ounces returns the package weight in ounces.
func (p Package) Ounces() float64 {
	switch p.WeightUnit {
	case WeightLB:
		return p.Weight * ouncesPerPound
	case WeightKG:
		return p.Weight * 1000 / gramsPerOunce
	case WeightG:
		return p.Weight / gramsPerOunce
	default:
		return p.Weight
	}
}

// Pounds returns the package weight in pounds.
func (p Package) Pounds() float64 {
	return p.Ounces() / ouncesPerPound
}

// Kilograms returns the package weight in kilograms.
func (p Package) Kilograms() float64 {
	return p.Ounces() * gramsPerOunce / 1000
}

// Inches returns length, width and height in inches.
func (p Package) Inches() [3]float64 {
	dims := [3]float64{p.Length, p.Width, p.Height}
	if p.DimensionUnit == DimensionCM {
		for i := range dims {
			dims[i] /= centimetersPerIn
		}
	}
	return dims
}

// Centimeters returns length, width and height in centimeters.
func (p Package) Centimeters() [3]float64 {
	dims := [3]float64{p.Length, p.Width, p.Height}
	if p.DimensionUnit != DimensionCM {
		for i := range dims {
			dims[i] *= centimetersPerIn
		}
	}
	return dims
}

// ValueCents returns the larger of the declared and insured value.
func (p Package) ValueCents() int64 {
	if p.InsuredValueCents > p.DeclaredValueCents {
		return p.InsuredValueCents
	}
	return p.DeclaredValueCents
}

// UnitCount sums the customs declaration quantities. A package always holds
// at least one unit.
func (p Package) UnitCount() int {
	n := 0
	for _, d := range p.Customs {
		n += d.Quantity
	}
	if n < 1 {
		return 1
	}
	return n
}

// CurrencyOrDefault returns the package currency, USD when unset.
func (p Package) CurrencyOrDefault() string {
	if p.Currency == "" {
		return "USD"
	}
	return p.Currency
}

// UnknownTransitRank orders rates whose transit time the carrier did not
// report after every known one.
const UnknownTransitRank = 100

// RateEstimate represents a shipping rate option from a carrier.
type RateEstimate struct {
	Carrier       string
	ServiceName   string
	ServiceCode   string
	TotalPrice    Money
	TransitDays   int // 0 when unknown
	DeliveryDate  *time.Time
	DeliveryRange []time.Time
	Packages      []Package
}

// TotalCents returns the total price in minor units.
func (r RateEstimate) TotalCents() int64 {
	return r.TotalPrice.Cents()
}

// TransitRank is a sort key, never a displayable duration.
func (r RateEstimate) TransitRank() int {
	if r.TransitDays <= 0 {
		return UnknownTransitRank
	}
	return r.TransitDays
}

// SortRates orders rates by transit rank, then by price.
func SortRates(rates []RateEstimate) {
	sort.SliceStable(rates, func(i, j int) bool {
		if ri, rj := rates[i].TransitRank(), rates[j].TransitRank(); ri != rj {
			return ri < rj
		}
		return rates[i].TotalPrice.Amount < rates[j].TotalPrice.Amount
	})
}

// Label represents a shipping label.
type Label struct {
	// Data is the first image part, the whole label for single-part labels.
	Data []byte
	// Parts holds every decoded image part in order when the carrier
	// splits the label.
	Parts           [][]byte
	Format          LabelFormat
	TrackingNumber  string
	Postage         *Money
	CustomsDocument []byte
}

// TrackingEvent represents a tracking event.
type TrackingEvent struct {
	Timestamp   time.Time // UTC
	Location    Location
	Description string
}

// TrackingHistory is a shipment's events in chronological order.
type TrackingHistory struct {
	TrackingNumber string
	Destination    Location
	Events         []TrackingEvent
}

// SortEvents orders events by timestamp, keeping document order for ties.
func SortEvents(events []TrackingEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}
