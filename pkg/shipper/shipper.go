// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// Operation identifies a carrier web-service call.
type Operation string

const (
	OpRate             Operation = "rate"
	OpLabel            Operation = "label"
	OpTrack            Operation = "track"
	OpValidateAddress  Operation = "validate_address"
	OpAccountStatus    Operation = "account_status"
	OpBuyPostage       Operation = "buy_postage"
	OpChangePassPhrase Operation = "change_pass_phrase"
	OpRefund           Operation = "refund"
	OpPickup           Operation = "pickup"
	OpUploadImage      Operation = "upload_image"
	OpCloseManifest    Operation = "close_manifest"
)

// RetrySafe reports whether the operation is read-only on the carrier side.
// Mutating operations may charge or reissue on duplicate submission and must
// not be retried blindly.
func (o Operation) RetrySafe() bool {
	switch o {
	case OpRate, OpTrack, OpValidateAddress, OpAccountStatus:
		return true
	default:
		return false
	}
}

// Shipper defines the interface that all shipping carriers must implement.
// Carriers embed Unsupported and override what they actually integrate, so an
// operation a carrier does not cover fails with IncompleteCoverageError before
// any network call.
type Shipper interface {
	// Name returns the carrier identifier (e.g., "endicia", "fedex").
	Name() string

	// Operations lists the operations the carrier integrates.
	Operations() []Operation

	// FindRates returns rate quotes for a shipment.
	FindRates(ctx context.Context, s *Shipment, opts Options) (*Response, error)

	// CreateLabel purchases postage and returns the label.
	CreateLabel(ctx context.Context, s *Shipment, opts Options) (*Response, error)

	// Track returns the tracking history for a tracking number.
	Track(ctx context.Context, trackingNumber string, opts Options) (*Response, error)

	// ValidateAddress classifies an address as residential or commercial.
	ValidateAddress(ctx context.Context, loc Location, opts Options) (*Response, error)

	// AccountStatus returns the postage account state.
	AccountStatus(ctx context.Context, opts Options) (*Response, error)

	// BuyPostage adds funds to the postage account.
	BuyPostage(ctx context.Context, amount float64, opts Options) (*Response, error)

	// ChangePassPhrase rotates the account pass-phrase.
	ChangePassPhrase(ctx context.Context, newPassPhrase string, opts Options) (*Response, error)

	// Refund requests refunds for unused labels.
	Refund(ctx context.Context, trackingNumbers []string, opts Options) (*Response, error)

	// RequestPickup schedules a carrier pickup at the shipper's address.
	RequestPickup(ctx context.Context, s *Shipment, trackingNumbers []string, opts Options) (*Response, error)

	// UploadImage stores a letterhead or signature image with the carrier.
	UploadImage(ctx context.Context, imageID string, image []byte, opts Options) (*Response, error)

	// CloseManifest finalizes the day's shipments.
	CloseManifest(ctx context.Context, opts Options) (*Response, error)
}

// Supports reports whether s integrates op.
func Supports(s Shipper, op Operation) bool {
	for _, o := range s.Operations() {
		if o == op {
			return true
		}
	}
	return false
}

// Unsupported implements every Shipper operation by failing with
// IncompleteCoverageError.
type Unsupported struct {
	Carrier string
}

func (u Unsupported) coverage(op Operation) (*Response, error) {
	return nil, &IncompleteCoverageError{Carrier: u.Carrier, Operation: op}
}

func (u Unsupported) FindRates(context.Context, *Shipment, Options) (*Response, error) {
	return u.coverage(OpRate)
}

func (u Unsupported) CreateLabel(context.Context, *Shipment, Options) (*Response, error) {
	return u.coverage(OpLabel)
}

func (u Unsupported) Track(context.Context, string, Options) (*Response, error) {
	return u.coverage(OpTrack)
}

func (u Unsupported) ValidateAddress(context.Context, Location, Options) (*Response, error) {
	return u.coverage(OpValidateAddress)
}

func (u Unsupported) AccountStatus(context.Context, Options) (*Response, error) {
	return u.coverage(OpAccountStatus)
}

func (u Unsupported) BuyPostage(context.Context, float64, Options) (*Response, error) {
	return u.coverage(OpBuyPostage)
}

func (u Unsupported) ChangePassPhrase(context.Context, string, Options) (*Response, error) {
	return u.coverage(OpChangePassPhrase)
}

func (u Unsupported) Refund(context.Context, []string, Options) (*Response, error) {
	return u.coverage(OpRefund)
}

func (u Unsupported) RequestPickup(context.Context, *Shipment, []string, Options) (*Response, error) {
	return u.coverage(OpPickup)
}

func (u Unsupported) UploadImage(context.Context, string, []byte, Options) (*Response, error) {
	return u.coverage(OpUploadImage)
}

func (u Unsupported) CloseManifest(context.Context, Options) (*Response, error) {
	return u.coverage(OpCloseManifest)
}
