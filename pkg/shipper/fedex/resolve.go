package fedex

import (
	"context"
	"strings"

	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"go.uber.org/zap"
)

// FindRates rates the shipment after settling whether the destination is a
// residence or a business, since FedEx prices the two differently.
//
// Destinations that do not accept electronic trade documents get an empty,
// successful quote without any request. Otherwise the address type is
// resolved in at most MaxResolutionAttempts passes and the rate request is
// sent at most MaxRateAttempts times; a domestic quote without a smart post
// rate is asked for once more. Those bounds hold whatever retry policy the
// client's transport carries.
func (c *Client) FindRates(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	ctx = transport.WithoutRetry(ctx)
	dest := s.Destination()
	if !AcceptsETD(dest.CountryCode) {
		c.logger.Info("FedEx does not rate destination", zap.String("country", dest.CountryCode))
		return &shipper.Response{
			Kind:      shipper.KindRateQuote,
			Carrier:   carrierName,
			Operation: shipper.OpRate,
			Success:   true,
			Rates:     []shipper.RateEstimate{},
		}, nil
	}

	resolved, err := c.resolveAddressType(ctx, s, opts)
	if err != nil {
		return nil, err
	}
	s = s.WithDestination(resolved)

	c.logger.Info("Getting FedEx rates",
		zap.String("origin_postal", s.Origin().PostalCode),
		zap.String("destination_postal", resolved.PostalCode),
		zap.String("address_type", string(resolved.AddressType())),
	)

	var resp *shipper.Response
	for attempt := 1; attempt <= MaxRateAttempts; attempt++ {
		raw, err := c.post(ctx, shipper.OpRate, opts, BuildRateRequest(c.config, s, opts))
		if err != nil {
			return nil, err
		}
		resp, err = c.finish(ParseRateResponse(raw, s.Packages(), c.config.now()))
		if err != nil {
			return nil, err
		}
		if s.CrossBorder() || hasSmartPost(resp.Rates) {
			break
		}
		c.logger.Debug("FedEx quote has no smart post rate", zap.Int("attempt", attempt))
	}
	return resp, nil
}

// resolveAddressType returns the destination with its address type set.
// Validation runs for US destinations only; a validation the carrier
// rejects falls back to residential.
func (c *Client) resolveAddressType(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (shipper.Location, error) {
	dest := s.Destination()
	for attempt := 1; attempt <= MaxResolutionAttempts; attempt++ {
		t, err := c.addressType(ctx, dest, opts)
		if err != nil {
			return dest, err
		}
		if dest, err = dest.WithAddressType(t); err != nil {
			return dest, err
		}
		if s.CrossBorder() || dest.Commercial() {
			break
		}
	}
	return dest, nil
}

func (c *Client) addressType(ctx context.Context, dest shipper.Location, opts shipper.Options) (shipper.AddressType, error) {
	if opts.DisableAddressValidation {
		if opts.DefaultAddressType != shipper.AddressUnknown {
			return opts.DefaultAddressType, nil
		}
		return shipper.AddressResidential, nil
	}
	if !domestic(dest) {
		return shipper.AddressResidential, nil
	}

	resp, err := c.ValidateAddress(ctx, dest, opts)
	if err != nil {
		return shipper.AddressUnknown, err
	}
	if !resp.Success {
		return shipper.AddressResidential, nil
	}
	return resp.Address.AddressType, nil
}

func domestic(loc shipper.Location) bool {
	return strings.EqualFold(loc.CountryCode, "US")
}

func hasSmartPost(rates []shipper.RateEstimate) bool {
	for _, r := range rates {
		if r.ServiceCode == ServiceSmartPost {
			return true
		}
	}
	return false
}
