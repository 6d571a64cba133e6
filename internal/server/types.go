package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tournevent/shipgate/pkg/shipper"
)

// Request bodies

type rateRequest struct {
	// Carriers limits rating to the named carriers; every rating carrier
	// when empty.
	Carriers []string      `json:"carriers"`
	Shipment shipmentInput `json:"shipment"`
	Options  optionsInput  `json:"options"`
}

type labelRequest struct {
	Carrier  string        `json:"carrier" validate:"required"`
	Shipment shipmentInput `json:"shipment"`
	Options  optionsInput  `json:"options"`
}

type trackingRequest struct {
	Carrier        string       `json:"carrier" validate:"required"`
	TrackingNumber string       `json:"tracking_number" validate:"required"`
	Options        optionsInput `json:"options"`
}

// shipmentInput takes addresses as loosely keyed records, normalized with
// shipper.LocationFrom.
type shipmentInput struct {
	ServiceTypeCode       string            `json:"service_type_code" validate:"required"`
	PaymentType           string            `json:"payment_type" validate:"required,oneof=credit_card bill_to_account"`
	ReferenceNumber       string            `json:"reference_number" validate:"required"`
	PrintMethodCode       string            `json:"print_method_code" validate:"required"`
	Description           string            `json:"description"`
	OrderID               string            `json:"order_id"`
	SignedBy              string            `json:"signed_by"`
	Shipper               map[string]string `json:"shipper" validate:"required"`
	Destination           map[string]string `json:"destination" validate:"required"`
	Origin                map[string]string `json:"origin"`
	Packages              []packageInput    `json:"packages" validate:"required,min=1,dive"`
	Residential           *bool             `json:"residential"`
	Return                bool              `json:"return"`
	SundayHolidayDelivery bool              `json:"sunday_holiday_delivery"`
	ValueCents            int64             `json:"value_cents" validate:"gte=0"`
}

type packageInput struct {
	Weight             float64        `json:"weight" validate:"gt=0"`
	WeightUnit         string         `json:"weight_unit" validate:"omitempty,oneof=oz lb kg g"`
	Length             float64        `json:"length" validate:"gte=0"`
	Width              float64        `json:"width" validate:"gte=0"`
	Height             float64        `json:"height" validate:"gte=0"`
	DimensionUnit      string         `json:"dimension_unit" validate:"omitempty,oneof=in cm"`
	PackageType        string         `json:"package_type"`
	DeclaredValueCents int64          `json:"declared_value_cents" validate:"gte=0"`
	InsuredValueCents  int64          `json:"insured_value_cents" validate:"gte=0"`
	Currency           string         `json:"currency" validate:"omitempty,len=3"`
	Reference1         string         `json:"reference1"`
	Reference2         string         `json:"reference2"`
	Customs            []customsInput `json:"customs" validate:"dive"`
}

type customsInput struct {
	Description string `json:"description" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
}

type optionsInput struct {
	Test                     bool   `json:"test"`
	Residential              *bool  `json:"residential"`
	Return                   bool   `json:"return"`
	Broker                   string `json:"broker"`
	DisableAddressValidation bool   `json:"disable_address_validation"`
	DefaultAddressType       string `json:"default_address_type" validate:"omitempty,oneof=residential commercial po_box"`
	PackageIdentifierType    string `json:"package_identifier_type"`
	HubID                    string `json:"hub_id"`
}

func (in shipmentInput) toShipment() (*shipper.Shipment, error) {
	params := shipper.ShipmentParams{
		ServiceTypeCode:       in.ServiceTypeCode,
		PaymentType:           shipper.PaymentType(in.PaymentType),
		ReferenceNumber:       in.ReferenceNumber,
		PrintMethodCode:       in.PrintMethodCode,
		Description:           in.Description,
		OrderID:               in.OrderID,
		SignedBy:              in.SignedBy,
		Shipper:               shipper.LocationFrom(in.Shipper),
		Destination:           shipper.LocationFrom(in.Destination),
		Residential:           in.Residential,
		Return:                in.Return,
		SundayHolidayDelivery: in.SundayHolidayDelivery,
		ValueCents:            in.ValueCents,
	}
	if len(in.Origin) > 0 {
		origin := shipper.LocationFrom(in.Origin)
		params.Origin = &origin
	}
	for _, p := range in.Packages {
		pkg := shipper.Package{
			Weight:             p.Weight,
			WeightUnit:         shipper.WeightUnit(p.WeightUnit),
			Length:             p.Length,
			Width:              p.Width,
			Height:             p.Height,
			DimensionUnit:      shipper.DimensionUnit(p.DimensionUnit),
			PackageType:        shipper.PackageType(p.PackageType),
			DeclaredValueCents: p.DeclaredValueCents,
			InsuredValueCents:  p.InsuredValueCents,
			Currency:           strings.ToUpper(p.Currency),
			Reference1:         p.Reference1,
			Reference2:         p.Reference2,
		}
		for _, c := range p.Customs {
			pkg.Customs = append(pkg.Customs, shipper.CustomsDeclaration{Description: c.Description, Quantity: c.Quantity})
		}
		params.Packages = append(params.Packages, pkg)
	}
	return shipper.NewShipment(params)
}

// toOptions converts the input; force sends the call to the test endpoint
// regardless of the request.
func (in optionsInput) toOptions(force bool) shipper.Options {
	return shipper.Options{
		Test:                     in.Test || force,
		Residential:              in.Residential,
		Return:                   in.Return,
		Broker:                   in.Broker,
		DisableAddressValidation: in.DisableAddressValidation,
		DefaultAddressType:       shipper.AddressType(in.DefaultAddressType),
		PackageIdentifierType:    in.PackageIdentifierType,
		HubID:                    in.HubID,
	}
}

// Response bodies

type errorOutput struct {
	Error string `json:"error"`
}

type carrierOutput struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

type rateOutputs struct {
	Rates  []rateOutput `json:"rates"`
	Errors []string     `json:"errors"`
}

type rateOutput struct {
	Carrier      string     `json:"carrier"`
	ServiceCode  string     `json:"service_code"`
	ServiceName  string     `json:"service_name"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	TransitDays  int        `json:"transit_days,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

func newRateOutput(r shipper.RateEstimate) rateOutput {
	return rateOutput{
		Carrier:      r.Carrier,
		ServiceCode:  r.ServiceCode,
		ServiceName:  r.ServiceName,
		Amount:       r.TotalPrice.Amount,
		Currency:     r.TotalPrice.Currency,
		TransitDays:  r.TransitDays,
		DeliveryDate: r.DeliveryDate,
	}
}

type labelOutput struct {
	Carrier         string  `json:"carrier"`
	TrackingNumber  string  `json:"tracking_number"`
	Format          string  `json:"format"`
	Label           []byte  `json:"label"`
	CustomsDocument []byte  `json:"customs_document,omitempty"`
	Postage         float64 `json:"postage,omitempty"`
	Currency        string  `json:"currency,omitempty"`
}

func newLabelOutput(resp *shipper.Response) labelOutput {
	out := labelOutput{
		Carrier:         resp.Carrier,
		TrackingNumber:  resp.Label.TrackingNumber,
		Format:          string(resp.Label.Format),
		Label:           resp.Label.Data,
		CustomsDocument: resp.Label.CustomsDocument,
	}
	if p := resp.Label.Postage; p != nil {
		out.Postage = p.Amount
		out.Currency = p.Currency
	}
	return out
}

type trackingOutput struct {
	Carrier        string        `json:"carrier"`
	TrackingNumber string        `json:"tracking_number"`
	Events         []eventOutput `json:"events"`
}

type eventOutput struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

func newTrackingOutput(resp *shipper.Response) trackingOutput {
	out := trackingOutput{
		Carrier:        resp.Carrier,
		TrackingNumber: resp.Tracking.TrackingNumber,
		Events:         make([]eventOutput, 0, len(resp.Tracking.Events)),
	}
	for _, ev := range resp.Tracking.Events {
		out.Events = append(out.Events, eventOutput{
			Timestamp:   ev.Timestamp,
			Description: ev.Description,
			Location:    ev.Location.String(),
		})
	}
	return out
}

type carrierRejection struct {
	Carrier string `json:"carrier"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

func newCarrierRejection(resp *shipper.Response) carrierRejection {
	out := carrierRejection{Carrier: resp.Carrier, Error: resp.Message}
	if resp.Error != nil {
		out.Code = resp.Error.Code
	}
	return out
}

// Validation

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
