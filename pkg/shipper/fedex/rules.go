package fedex

import (
	"math"
	"strings"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
)

// imperialCountries are the origins that ship in pounds and inches.
var imperialCountries = toSet("US", "LR", "MM")

// Minimum billable weights.
const (
	minPounds    = 1.0
	minKilograms = 0.454
)

// Signature options.
const (
	SignatureNotRequired = "NO_SIGNATURE_REQUIRED"
	SignatureIndirect    = "INDIRECT"
)

// packageServices are the services that accept insured values and package
// special services.
var packageServices = toSet(
	ServiceGroundHomeDelivery, ServiceStandardOvernight, ServiceFedEx2Day,
	ServiceFedExGround, ServiceInternationalEconomy, ServiceExpressSaver,
)

// ImperialUnits reports whether shipments from countryCode use LB and IN.
func ImperialUnits(countryCode string) bool {
	return imperialCountries[strings.ToUpper(countryCode)]
}

// Weight returns the package weight and its unit in the unit system of the
// origin, rounded to three decimals and raised to the billable minimum.
func Weight(origin shipper.Location, pkg shipper.Package) (float64, string) {
	if ImperialUnits(origin.CountryCode) {
		return math.Max(round3(pkg.Pounds()), minPounds), "LB"
	}
	return math.Max(round3(pkg.Kilograms()), minKilograms), "KG"
}

// Dimensions returns length, width and height in the unit system of the
// origin, each rounded up to a whole unit.
func Dimensions(origin shipper.Location, pkg shipper.Package) ([3]int, string) {
	raw, units := pkg.Centimeters(), "CM"
	if ImperialUnits(origin.CountryCode) {
		raw, units = pkg.Inches(), "IN"
	}
	var dims [3]int
	for i, v := range raw {
		dims[i] = RoundUpDimension(v)
	}
	return dims, units
}

// RoundUpDimension truncates v to three decimals, then rounds up.
func RoundUpDimension(v float64) int {
	return int(math.Ceil(round3(v)))
}

// IsResidential decides whether loc is billed as a residence. An explicit
// override always wins. Otherwise an address without a declared type is
// residential, as is anything not commercial shipped GROUND_HOME_DELIVERY;
// FEDEX_GROUND within the US is always commercial.
func IsResidential(loc shipper.Location, serviceCode string, override *bool) bool {
	if override != nil {
		return *override
	}
	t := loc.AddressType()
	residential := t == shipper.AddressUnknown ||
		(serviceCode == ServiceGroundHomeDelivery && t != shipper.AddressCommercial) ||
		t == shipper.AddressResidential
	domesticGround := serviceCode == ServiceFedExGround && strings.EqualFold(loc.CountryCode, "US")
	return residential && !domesticGround
}

// HasPackageServices reports whether serviceCode accepts package special
// services and insured values.
func HasPackageServices(serviceCode string) bool {
	return packageServices[serviceCode]
}

// HasCustomerReferences reports whether serviceCode accepts customer
// references. Smart post does not.
func HasCustomerReferences(serviceCode string) bool {
	return serviceCode != ServiceSmartPost
}

// SignatureOption picks the signature requirement for pkg. Packages below the
// threshold need no signature, packages above it an indirect one, unless the
// shipment is a return.
func SignatureOption(pkg shipper.Package, opts shipper.Options) string {
	value := float64(pkg.ValueCents()) / 100
	threshold := opts.Threshold()
	if value == 0 || value < threshold || (value > threshold && opts.Return) {
		return SignatureNotRequired
	}
	return SignatureIndirect
}

// UsePaperLabels reports whether the label prints on letter paper rather
// than thermal stock.
func UsePaperLabels(serviceCode string, opts shipper.Options) bool {
	return serviceCode == ServiceInternationalEconomy || opts.Return
}

// ShipDate returns 10:00 on the next weekday on or after now.
func ShipDate(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, now.Location())
	switch now.Weekday() {
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	default:
		return day
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
