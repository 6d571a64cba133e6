package shipper

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// PaymentType selects who pays for postage.
type PaymentType string

const (
	PaymentCreditCard    PaymentType = "credit_card"
	PaymentBillToAccount PaymentType = "bill_to_account"
)

// militaryProvinces are APO/FPO/DPO state codes. Addresses there are written
// domestically but clear customs.
var militaryProvinces = map[string]bool{"AE": true, "AP": true, "AA": true}

// ShipmentParams carries everything needed to construct a Shipment. The
// option tag names the field in RequiredOptionError.
type ShipmentParams struct {
	ServiceTypeCode string      `option:"service_type_code" validate:"required"`
	PaymentType     PaymentType `option:"payment_type" validate:"required,oneof=credit_card bill_to_account"`
	Packages        []Package   `option:"packages" validate:"required,min=1,dive"`
	ReferenceNumber string      `option:"reference_number" validate:"required"`
	PrintMethodCode string      `option:"print_method_code" validate:"required"`

	Shipper     Location
	Destination Location
	// Origin is the pickup point when it differs from the shipper.
	Origin *Location

	Description           string
	ValueCents            int64 `option:"value" validate:"gte=0"`
	SignedBy              string
	Quantity              int `option:"quantity" validate:"gte=0"`
	OrderID               string
	POZipCode             string
	Return                bool
	Residential           *bool
	DocumentsOnly         bool
	SundayHolidayDelivery bool
	LabelDate             *time.Time
	DeliveryInstructions  string
}

// Shipment is an immutable shipment description. The only state that changes
// over its life is the reference to the latest carrier result, and that
// change produces a new Shipment through Record.
type Shipment struct {
	p    ShipmentParams
	last *Response
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("option")
	})
	return v
}

// NewShipment validates params and builds a Shipment. The first failing
// option is reported as *RequiredOptionError.
func NewShipment(params ShipmentParams) (*Shipment, error) {
	if err := validate.Struct(params); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return nil, requiredOption(ve[0])
		}
		return nil, err
	}
	p := params
	p.Packages = append([]Package(nil), params.Packages...)
	if params.Origin != nil {
		o := *params.Origin
		p.Origin = &o
	}
	return &Shipment{p: p}, nil
}

func requiredOption(fe validator.FieldError) *RequiredOptionError {
	option := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "[") {
		// ShipmentParams.packages[0].Weight -> packages[0].Weight
		if _, rest, ok := strings.Cut(ns, "."); ok {
			option = rest
		}
	}
	return &RequiredOptionError{Option: option, Rule: fe.Tag()}
}

// Params returns a copy of the construction parameters.
func (s *Shipment) Params() ShipmentParams {
	p := s.p
	p.Packages = s.Packages()
	return p
}

func (s *Shipment) Shipper() Location     { return s.p.Shipper }
func (s *Shipment) Destination() Location { return s.p.Destination }

// Origin returns the pickup point, falling back to the shipper.
func (s *Shipment) Origin() Location {
	if s.p.Origin != nil {
		return *s.p.Origin
	}
	return s.p.Shipper
}

// HasDistinctOrigin reports whether the pickup point differs from the shipper.
func (s *Shipment) HasDistinctOrigin() bool { return s.p.Origin != nil }

// Packages returns a copy of the package list.
func (s *Shipment) Packages() []Package {
	return append([]Package(nil), s.p.Packages...)
}

// Package returns the first package.
func (s *Shipment) Package() Package { return s.p.Packages[0] }

func (s *Shipment) ServiceTypeCode() string      { return s.p.ServiceTypeCode }
func (s *Shipment) PaymentType() PaymentType     { return s.p.PaymentType }
func (s *Shipment) ReferenceNumber() string      { return s.p.ReferenceNumber }
func (s *Shipment) PrintMethodCode() string      { return s.p.PrintMethodCode }
func (s *Shipment) Description() string          { return s.p.Description }
func (s *Shipment) ValueCents() int64            { return s.p.ValueCents }
func (s *Shipment) SignedBy() string             { return s.p.SignedBy }
func (s *Shipment) OrderID() string              { return s.p.OrderID }
func (s *Shipment) POZipCode() string            { return s.p.POZipCode }
func (s *Shipment) Return() bool                 { return s.p.Return }
func (s *Shipment) Residential() *bool           { return s.p.Residential }
func (s *Shipment) DeliveryInstructions() string { return s.p.DeliveryInstructions }

// Quantity returns the declared item count, at least one.
func (s *Shipment) Quantity() int {
	if s.p.Quantity < 1 {
		return 1
	}
	return s.p.Quantity
}

// WithDestination returns a copy of s shipping to loc.
func (s *Shipment) WithDestination(loc Location) *Shipment {
	c := *s
	c.p.Destination = loc
	return &c
}

// International reports whether the destination country differs from the
// shipper's.
func (s *Shipment) International() bool {
	return !strings.EqualFold(s.p.Destination.CountryCode, s.p.Shipper.CountryCode)
}

// CrossBorder reports whether the destination country differs from the
// origin's. It matches International unless a distinct origin is set.
func (s *Shipment) CrossBorder() bool {
	return !strings.EqualFold(s.p.Destination.CountryCode, s.Origin().CountryCode)
}

// RequiresCustoms reports whether the destination is a military or diplomatic
// province, which needs a customs form even when the country matches.
func (s *Shipment) RequiresCustoms() bool {
	return militaryProvinces[strings.ToUpper(strings.TrimSpace(s.p.Destination.Province))]
}

// Record returns a copy of s referencing resp as its latest result.
func (s *Shipment) Record(resp *Response) *Shipment {
	c := *s
	c.last = resp
	return &c
}

// LastResult returns the latest recorded result, or nil.
func (s *Shipment) LastResult() *Response { return s.last }

// Tracking returns the tracking number from the latest label result.
func (s *Shipment) Tracking() string {
	if s.last == nil || s.last.Label == nil {
		return ""
	}
	return s.last.Label.TrackingNumber
}

// Postage returns the postage charged by the latest label result.
func (s *Shipment) Postage() *Money {
	if s.last == nil || s.last.Label == nil {
		return nil
	}
	return s.last.Label.Postage
}

// LabelImage returns the decoded label bytes from the latest label result.
func (s *Shipment) LabelImage() []byte {
	if s.last == nil || s.last.Label == nil {
		return nil
	}
	return s.last.Label.Data
}

// ErrorMessage returns the carrier's message when the latest result failed.
func (s *Shipment) ErrorMessage() string {
	if s.last == nil || s.last.Success {
		return ""
	}
	return s.last.Message
}
