// Package fedex provides integration with the FedEx XML web services: rating,
// shipping labels, tracking, address validation, image upload and end-of-day
// close.
package fedex

import (
	"strings"

	"github.com/tournevent/shipgate/pkg/shipper/transport"
)

const carrierName = "fedex"

var endpoint = transport.Endpoint{
	Test: "https://wsbeta.fedex.com:443/xml",
	Live: "https://ws.fedex.com:443/xml",
}

// Service types with special handling.
const (
	ServiceGroundHomeDelivery   = "GROUND_HOME_DELIVERY"
	ServiceFedExGround          = "FEDEX_GROUND"
	ServiceSmartPost            = "SMART_POST"
	ServiceInternationalEconomy = "INTERNATIONAL_ECONOMY"
	ServiceStandardOvernight    = "STANDARD_OVERNIGHT"
	ServiceFedEx2Day            = "FEDEX_2_DAY"
	ServiceExpressSaver         = "FEDEX_EXPRESS_SAVER"
)

// saturdaySuffix marks the Saturday-delivery variant of a service code.
const saturdaySuffix = "_SATURDAY_DELIVERY"

// DeclarationStatement is printed on every commercial invoice.
const DeclarationStatement = "I hereby certify that the information on this invoice is true and correct and the contents and value of this shipment is as stated above."

// MaxResolutionAttempts bounds the address-type resolution passes and
// MaxRateAttempts the rate requests made by one FindRates call.
const (
	MaxResolutionAttempts = 2
	MaxRateAttempts       = 2
)

// service identifies one FedEx web service family and the version spoken.
type service struct {
	id                         string
	major, intermediate, minor int
	namespace                  string
}

var (
	shipService     = service{"ship", 10, 0, 0, "http://fedex.com/ws/ship/v10"}
	rateService     = service{"crs", 10, 0, 0, "http://fedex.com/ws/rate/v10"}
	trackService    = service{"trck", 3, 0, 0, "http://fedex.com/ws/track/v3"}
	validateService = service{"aval", 2, 0, 0, "http://fedex.com/ws/addressvalidation/v2"}
	uploadService   = service{"cdus", 1, 1, 0, "http://fedex.com/ws/uploaddocument/v1"}
	closeService    = service{"clos", 2, 0, 0, "http://fedex.com/ws/close/v2"}
)

// etdCountries accept electronic trade documents.
var etdCountries = toSet(
	"AF", "AL", "AU", "AT", "BH", "BB", "BE", "BM", "CA", "GB", "CN", "HR", "CY", "CZ", "DK", "EE", "FI", "FR",
	"DE", "HK", "HU", "IS", "IN", "IE", "IL", "IT", "JP", "KR", "LV", "LI", "LT", "LU", "MO", "MY", "MX", "MC",
	"NL", "NZ", "NO", "PS", "PH", "PL", "PT", "PR", "SM", "SG", "SK", "SI", "ZA", "ES", "SE", "CH", "TH", "TW",
	"US",
)

// AcceptsETD reports whether countryCode accepts electronic trade documents.
// Rating is only offered to those destinations.
func AcceptsETD(countryCode string) bool {
	return etdCountries[strings.ToUpper(countryCode)]
}

// ServiceTypes names the known service codes.
var ServiceTypes = map[string]string{
	"PRIORITY_OVERNIGHT":                       "FedEx Priority Overnight",
	"PRIORITY_OVERNIGHT_SATURDAY_DELIVERY":     "FedEx Priority Overnight Saturday Delivery",
	"FEDEX_2_DAY":                              "FedEx 2 Day",
	"FEDEX_2_DAY_SATURDAY_DELIVERY":            "FedEx 2 Day Saturday Delivery",
	"STANDARD_OVERNIGHT":                       "FedEx Standard Overnight",
	"FIRST_OVERNIGHT":                          "FedEx First Overnight",
	"FIRST_OVERNIGHT_SATURDAY_DELIVERY":        "FedEx First Overnight Saturday Delivery",
	"FEDEX_EXPRESS_SAVER":                      "FedEx Express Saver",
	"FEDEX_1_DAY_FREIGHT":                      "FedEx 1 Day Freight",
	"FEDEX_1_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 1 Day Freight Saturday Delivery",
	"FEDEX_2_DAY_FREIGHT":                      "FedEx 2 Day Freight",
	"FEDEX_2_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 2 Day Freight Saturday Delivery",
	"FEDEX_3_DAY_FREIGHT":                      "FedEx 3 Day Freight",
	"FEDEX_3_DAY_FREIGHT_SATURDAY_DELIVERY":    "FedEx 3 Day Freight Saturday Delivery",
	"INTERNATIONAL_PRIORITY":                   "FedEx International Priority",
	"INTERNATIONAL_PRIORITY_SATURDAY_DELIVERY": "FedEx International Priority Saturday Delivery",
	"INTERNATIONAL_ECONOMY":                    "FedEx International Economy",
	"INTERNATIONAL_FIRST":                      "FedEx International First",
	"INTERNATIONAL_PRIORITY_FREIGHT":           "FedEx International Priority Freight",
	"INTERNATIONAL_ECONOMY_FREIGHT":            "FedEx International Economy Freight",
	"GROUND_HOME_DELIVERY":                     "FedEx Ground Home Delivery",
	"FEDEX_GROUND":                             "FedEx Ground",
	"INTERNATIONAL_GROUND":                     "FedEx International Ground",
}

// ServiceNameForCode returns the display name of a service code, deriving one
// from the code when it is not in ServiceTypes.
func ServiceNameForCode(code string) string {
	if name, ok := ServiceTypes[code]; ok {
		return name
	}
	words := strings.Split(strings.ToLower(code), "_")
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" || w == "fedex" {
			continue
		}
		out = append(out, strings.ToUpper(w[:1])+w[1:])
	}
	return strings.TrimSpace("FedEx " + strings.Join(out, " "))
}

// PackageIdentifierTypes maps Options.PackageIdentifierType to the wire value.
var PackageIdentifierTypes = map[string]string{
	"tracking_number":           "TRACKING_NUMBER_OR_DOORTAG",
	"door_tag":                  "TRACKING_NUMBER_OR_DOORTAG",
	"rma":                       "RMA",
	"ground_shipment_id":        "GROUND_SHIPMENT_ID",
	"ground_invoice_number":     "GROUND_INVOICE_NUMBER",
	"ground_customer_reference": "GROUND_CUSTOMER_REFERENCE",
	"ground_po":                 "GROUND_PO",
	"express_reference":         "EXPRESS_REFERENCE",
	"express_mps_master":        "EXPRESS_MPS_MASTER",
}

const defaultPackageIdentifier = "tracking_number"

// TransitTimes maps commit transit codes to days. UNKNOWN only orders rates.
var TransitTimes = map[string]int{
	"ONE_DAY":        1,
	"TWO_DAYS":       2,
	"THREE_DAYS":     3,
	"FOUR_DAYS":      4,
	"FIVE_DAYS":      5,
	"SIX_DAYS":       6,
	"SEVEN_DAYS":     7,
	"EIGHT_DAYS":     8,
	"NINE_DAYS":      9,
	"TEN_DAYS":       10,
	"ELEVEN_DAYS":    11,
	"TWELVE_DAYS":    12,
	"THIRTEEN_DAYS":  13,
	"FOURTEEN_DAYS":  14,
	"FIFTEEN_DAYS":   15,
	"SIXTEEN_DAYS":   16,
	"SEVENTEEN_DAYS": 17,
	"EIGHTEEN_DAYS":  18,
	"NINETEEN_DAYS":  19,
	"TWENTY_DAYS":    20,
	"UNKNOWN":        100,
}

// MaxTransitTimes is the slowest commitment per service, used when a rate
// reply carries no transit time.
var MaxTransitTimes = map[string]string{
	"PRIORITY_OVERNIGHT":                       "ONE_DAY",
	"PRIORITY_OVERNIGHT_SATURDAY_DELIVERY":     "ONE_DAY",
	"FEDEX_2_DAY":                              "TWO_DAYS",
	"FEDEX_2_DAY_AM":                           "TWO_DAYS",
	"FEDEX_2_DAY_SATURDAY_DELIVERY":            "TWO_DAYS",
	"STANDARD_OVERNIGHT":                       "ONE_DAY",
	"FIRST_OVERNIGHT":                          "ONE_DAY",
	"FIRST_OVERNIGHT_SATURDAY_DELIVERY":        "ONE_DAY",
	"FEDEX_EXPRESS_SAVER":                      "THREE_DAYS",
	"FEDEX_1_DAY_FREIGHT":                      "ONE_DAY",
	"FEDEX_1_DAY_FREIGHT_SATURDAY_DELIVERY":    "ONE_DAY",
	"FEDEX_2_DAY_FREIGHT":                      "TWO_DAYS",
	"FEDEX_2_DAY_FREIGHT_SATURDAY_DELIVERY":    "TWO_DAYS",
	"FEDEX_3_DAY_FREIGHT":                      "THREE_DAYS",
	"FEDEX_3_DAY_FREIGHT_SATURDAY_DELIVERY":    "THREE_DAYS",
	"INTERNATIONAL_PRIORITY":                   "THREE_DAYS",
	"INTERNATIONAL_PRIORITY_SATURDAY_DELIVERY": "THREE_DAYS",
	"INTERNATIONAL_ECONOMY":                    "FIVE_DAYS",
	"INTERNATIONAL_FIRST":                      "THREE_DAYS",
	"INTERNATIONAL_PRIORITY_FREIGHT":           "THREE_DAYS",
	"INTERNATIONAL_ECONOMY_FREIGHT":            "FIVE_DAYS",
	"GROUND_HOME_DELIVERY":                     "SEVEN_DAYS",
	"FEDEX_GROUND":                             "SEVEN_DAYS",
	"INTERNATIONAL_GROUND":                     "SEVEN_DAYS",
}

// TransitDays returns the transit days for a commit code, falling back to the
// service's maximum. Zero means unknown.
func TransitDays(transitCode, serviceCode string) int {
	days, ok := TransitTimes[transitCode]
	if !ok {
		days = TransitTimes[MaxTransitTimes[serviceCode]]
	}
	if days >= TransitTimes["UNKNOWN"] {
		return 0
	}
	return days
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
