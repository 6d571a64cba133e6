package shipper

import (
	"time"
)

// DefaultSignatureThreshold is the package value, in the package currency,
// above which FedEx labels require an indirect signature.
const DefaultSignatureThreshold = 500.0

// Options are per-call settings shared by every carrier. Zero values mean
// "carrier default".
type Options struct {
	// Test selects the carrier's test endpoint.
	Test bool

	// RequestID identifies an Endicia request; a fresh UUID when empty.
	RequestID string
	// TransactionID stamps a FedEx request; a fresh UUID when empty.
	TransactionID string

	// Residential overrides residential detection when set.
	Residential *bool
	// Return marks a return shipment.
	Return bool

	// Broker is the FedEx clearance brokerage, e.g. "BROKER_SELECT". Duties
	// are billed to the recipient when set.
	Broker string

	DropoffType   string
	PackagingType string

	// Smart post.
	HubID                string
	Indicia              string
	AncillaryEndorsement string
	CustomerManifestID   string

	LabelFormatType string
	ImageType       string
	LabelStockType  string

	// SignatureThreshold defaults to DefaultSignatureThreshold.
	SignatureThreshold float64

	// DisableAddressValidation skips FedEx address validation while rating.
	DisableAddressValidation bool
	// DefaultAddressType is used when address validation is disabled.
	DefaultAddressType AddressType

	// PackageIdentifierType qualifies a FedEx tracking number.
	PackageIdentifierType string
	ShipDateRangeBegin    *time.Time
	ShipDateRangeEnd      *time.Time

	// CloseDate is the FedEx ground close date; today when zero.
	CloseDate time.Time
}

// Threshold returns the effective signature threshold.
func (o Options) Threshold() float64 {
	if o.SignatureThreshold > 0 {
		return o.SignatureThreshold
	}
	return DefaultSignatureThreshold
}
