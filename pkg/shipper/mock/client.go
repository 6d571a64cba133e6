// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
)

// Client is a mock shipper for testing. It integrates rating, labels and
// tracking; everything else fails with IncompleteCoverageError.
type Client struct {
	shipper.Unsupported
	name string

	// Fail, when set, is returned from every integrated operation.
	Fail error
	// Reject, when set, makes every integrated operation return a carrier
	// error response with this message.
	Reject string
}

// New creates a new mock shipper.
func New(name string) *Client {
	return &Client{Unsupported: shipper.Unsupported{Carrier: name}, name: name}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Operations lists the integrated operations.
func (c *Client) Operations() []shipper.Operation {
	return []shipper.Operation{shipper.OpRate, shipper.OpLabel, shipper.OpTrack}
}

func (c *Client) outcome(op shipper.Operation) (*shipper.Response, error) {
	if c.Fail != nil {
		return nil, c.Fail
	}
	if c.Reject != "" {
		return shipper.NewCarrierErrorResponse(c.name, op, "REJECTED", c.Reject, nil), nil
	}
	return nil, nil
}

// FindRates returns mock rate estimates.
func (c *Client) FindRates(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	if resp, err := c.outcome(shipper.OpRate); resp != nil || err != nil {
		return resp, err
	}

	now := time.Now()
	standard := now.Add(5 * 24 * time.Hour)
	express := now.Add(2 * 24 * time.Hour)
	packages := s.Packages()

	rates := []shipper.RateEstimate{
		{
			Carrier:      c.name,
			ServiceCode:  "STANDARD",
			ServiceName:  fmt.Sprintf("%s Standard", c.name),
			TotalPrice:   shipper.Money{Amount: 15.82, Currency: "USD"},
			TransitDays:  5,
			DeliveryDate: &standard,
			Packages:     packages,
		},
		{
			Carrier:      c.name,
			ServiceCode:  "EXPRESS",
			ServiceName:  fmt.Sprintf("%s Express", c.name),
			TotalPrice:   shipper.Money{Amount: 29.95, Currency: "USD"},
			TransitDays:  2,
			DeliveryDate: &express,
			Packages:     packages,
		},
	}
	shipper.SortRates(rates)

	return &shipper.Response{
		Kind:      shipper.KindRateQuote,
		Carrier:   c.name,
		Operation: shipper.OpRate,
		Success:   true,
		Rates:     rates,
	}, nil
}

// CreateLabel issues a mock label.
func (c *Client) CreateLabel(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	if resp, err := c.outcome(shipper.OpLabel); resp != nil || err != nil {
		return resp, err
	}

	trackingNumber := fmt.Sprintf("MOCK%d", time.Now().UnixNano()%1000000000)
	return &shipper.Response{
		Kind:      shipper.KindLabelIssued,
		Carrier:   c.name,
		Operation: shipper.OpLabel,
		Success:   true,
		Label: &shipper.Label{
			Data:           []byte("%PDF-mock"),
			Format:         shipper.LabelFormat(s.PrintMethodCode()),
			TrackingNumber: trackingNumber,
			Postage:        &shipper.Money{Amount: 15.82, Currency: "USD"},
		},
	}, nil
}

// Track returns a two-event mock history.
func (c *Client) Track(ctx context.Context, trackingNumber string, opts shipper.Options) (*shipper.Response, error) {
	if resp, err := c.outcome(shipper.OpTrack); resp != nil || err != nil {
		return resp, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	return &shipper.Response{
		Kind:      shipper.KindTrackingHistory,
		Carrier:   c.name,
		Operation: shipper.OpTrack,
		Success:   true,
		Tracking: &shipper.TrackingHistory{
			TrackingNumber: trackingNumber,
			Events: []shipper.TrackingEvent{
				{Timestamp: now.Add(-24 * time.Hour), Description: "Picked up", Location: shipper.Location{City: "Memphis", Province: "TN", CountryCode: "US"}},
				{Timestamp: now, Description: "In transit", Location: shipper.Location{City: "Newark", Province: "NJ", CountryCode: "US"}},
			},
		},
	}, nil
}
