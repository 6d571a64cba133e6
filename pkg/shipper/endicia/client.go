package endicia

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/tournevent/shipgate/pkg/xmlnode"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds Endicia configuration.
type Config struct {
	RequesterID       string
	AccountID         string
	PassPhrase        string
	PartnerCustomerID string
	// Test selects test mode for every call; Options.Test can also set it per
	// call.
	Test    bool
	Timeout time.Duration
	UseMock bool
}

func (c Config) validate() error {
	return shipper.CheckRequired(carrierName,
		[2]string{"RequesterID", c.RequesterID},
		[2]string{"AccountID", c.AccountID},
		[2]string{"PassPhrase", c.PassPhrase},
	)
}

// Client is the Endicia API client.
type Client struct {
	shipper.Unsupported
	config     Config
	dispatcher *transport.Dispatcher
	logger     *otelzap.Logger
}

// New creates a new Endicia client. Missing credentials fail here, before any
// request is made.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, opts ...transport.Option) (*Client, error) {
	var poster transport.Poster
	if cfg.UseMock {
		poster = NewMockPoster()
	} else {
		poster = transport.NewHTTPPoster(transport.HTTPPosterConfig{Timeout: cfg.Timeout})
	}
	return NewWithPoster(cfg, poster, logger, tracer, opts...)
}

// NewWithPoster creates a new Endicia client with a custom transport.
func NewWithPoster(cfg Config, poster transport.Poster, logger *otelzap.Logger, tracer trace.Tracer, opts ...transport.Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	d := transport.NewDispatcher(carrierName, poster, logger, tracer, opts...)
	return &Client{
		Unsupported: shipper.Unsupported{Carrier: carrierName},
		config:      cfg,
		dispatcher:  d,
		logger:      d.Logger(),
	}, nil
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Operations lists the integrated operations.
func (c *Client) Operations() []shipper.Operation {
	return []shipper.Operation{
		shipper.OpRate, shipper.OpLabel, shipper.OpAccountStatus, shipper.OpBuyPostage,
		shipper.OpChangePassPhrase, shipper.OpRefund, shipper.OpPickup,
	}
}

// FindRates returns the postage for the shipment's mail class.
func (c *Client) FindRates(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Info("Getting Endicia rates",
		zap.String("origin_postal", s.Shipper().PostalCode),
		zap.String("destination_postal", s.Destination().PostalCode),
		zap.String("mail_class", s.ServiceTypeCode()),
	)

	raw, err := c.post(ctx, shipper.OpRate, opts, BuildRateRequest(c.config, s, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseRateResponse(raw, s.ServiceTypeCode(), s.Packages()))
}

// CreateLabel buys postage and returns the label.
func (c *Client) CreateLabel(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Info("Creating Endicia label",
		zap.String("reference", s.ReferenceNumber()),
		zap.String("mail_class", s.ServiceTypeCode()),
		zap.Bool("customs", s.RequiresCustoms()),
	)

	raw, err := c.post(ctx, shipper.OpLabel, opts, BuildLabelRequest(c.config, s, opts))
	if err != nil {
		return nil, err
	}
	resp, err := c.finish(ParseLabelResponse(raw, s.PrintMethodCode()))
	if err == nil && resp.Success {
		c.logger.Info("Endicia label created",
			zap.String("reference", s.ReferenceNumber()),
			zap.String("tracking_number", resp.Label.TrackingNumber),
		)
	}
	return resp, err
}

// AccountStatus returns the postage account state.
func (c *Client) AccountStatus(ctx context.Context, opts shipper.Options) (*shipper.Response, error) {
	raw, err := c.post(ctx, shipper.OpAccountStatus, opts, BuildAccountStatusRequest(c.config, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseAccountStatusResponse(raw))
}

// PostageBalance returns the account's remaining postage.
func (c *Client) PostageBalance(ctx context.Context, opts shipper.Options) (float64, error) {
	resp, err := c.AccountStatus(ctx, opts)
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, resp.Error
	}
	return resp.Account.PostageBalance, nil
}

// BuyPostage adds amount dollars of postage to the account.
func (c *Client) BuyPostage(ctx context.Context, amount float64, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Info("Buying Endicia postage", zap.Float64("amount", amount))

	raw, err := c.post(ctx, shipper.OpBuyPostage, opts, BuildBuyPostageRequest(c.config, amount, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseBuyPostageResponse(raw))
}

// ChangePassPhrase rotates the account pass-phrase. The client keeps using
// the configured pass-phrase; callers rebuild it with the new one.
func (c *Client) ChangePassPhrase(ctx context.Context, newPassPhrase string, opts shipper.Options) (*shipper.Response, error) {
	if newPassPhrase == "" {
		return nil, &shipper.RequiredOptionError{Option: "new_pass_phrase", Rule: "required"}
	}
	c.logger.Info("Changing Endicia pass phrase")

	raw, err := c.post(ctx, shipper.OpChangePassPhrase, opts, BuildChangePassPhraseRequest(c.config, newPassPhrase, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseChangePassPhraseResponse(raw))
}

// Refund requests refunds for unused labels.
func (c *Client) Refund(ctx context.Context, trackingNumbers []string, opts shipper.Options) (*shipper.Response, error) {
	if len(trackingNumbers) == 0 {
		return nil, &shipper.RequiredOptionError{Option: "tracking_number", Rule: "required"}
	}
	c.logger.Info("Requesting Endicia refund", zap.Strings("tracking_numbers", trackingNumbers))

	raw, err := c.post(ctx, shipper.OpRefund, opts, BuildRefundRequest(c.config, trackingNumbers, c.withTest(opts)))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseRefundResponse(raw))
}

// RequestPickup schedules a USPS pickup at the shipper's address.
func (c *Client) RequestPickup(ctx context.Context, s *shipper.Shipment, trackingNumbers []string, opts shipper.Options) (*shipper.Response, error) {
	if len(trackingNumbers) == 0 {
		return nil, &shipper.RequiredOptionError{Option: "tracking_number", Rule: "required"}
	}
	c.logger.Info("Requesting Endicia pickup",
		zap.String("origin_postal", s.Shipper().PostalCode),
		zap.Int("package_count", len(trackingNumbers)),
	)

	raw, err := c.post(ctx, shipper.OpPickup, opts, BuildPickupRequest(c.config, s, trackingNumbers, c.withTest(opts)))
	if err != nil {
		return nil, err
	}
	return c.finish(ParsePickupResponse(raw))
}

func (c *Client) withTest(opts shipper.Options) shipper.Options {
	opts.Test = opts.Test || c.config.Test
	return opts
}

// post wraps doc in the operation's form field and sends it.
func (c *Client) post(ctx context.Context, op shipper.Operation, opts shipper.Options, doc *xmlnode.Node) ([]byte, error) {
	r, ok := routes[op]
	if !ok {
		return nil, &shipper.IncompleteCoverageError{Carrier: carrierName, Operation: op}
	}

	form := url.Values{}
	if r.method != "" {
		form.Set("method", r.method)
	}
	form.Set(r.field, doc.String())

	return c.dispatcher.PostForm(ctx, op, r.endpoint, c.withTest(opts).Test, form)
}

func (c *Client) finish(resp *shipper.Response, err error) (*shipper.Response, error) {
	if err != nil {
		var malformed *shipper.MalformedResponseError
		if errors.As(err, &malformed) {
			c.logger.Error("Unparseable Endicia response",
				zap.String("operation", string(malformed.Operation)),
				zap.Int("response_bytes", len(malformed.Body)),
				zap.Error(err),
			)
		}
		return nil, err
	}
	if !resp.Success {
		c.logger.Warn("Endicia rejected request",
			zap.String("operation", string(resp.Operation)),
			zap.String("message", resp.Message),
		)
	}
	c.dispatcher.RecordOutcome(resp)
	return resp, nil
}
