package fedex

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/tournevent/shipgate/pkg/xmlnode"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds FedEx configuration.
type Config struct {
	Key         string
	Password    string
	Account     string
	MeterNumber string
	// Test selects the beta endpoint for every call; Options.Test can also
	// set it per call.
	Test    bool
	Timeout time.Duration
	UseMock bool
	// Clock returns the current time, time.Now when nil.
	Clock func() time.Time
}

func (c Config) validate() error {
	return shipper.CheckRequired(carrierName,
		[2]string{"Key", c.Key},
		[2]string{"Password", c.Password},
		[2]string{"Account", c.Account},
		[2]string{"MeterNumber", c.MeterNumber},
	)
}

func (c Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Client is the FedEx API client.
type Client struct {
	shipper.Unsupported
	config     Config
	dispatcher *transport.Dispatcher
	logger     *otelzap.Logger
}

// New creates a new FedEx client. Missing credentials fail here, before any
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

// NewWithPoster creates a new FedEx client with a custom transport.
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
		shipper.OpRate, shipper.OpLabel, shipper.OpTrack, shipper.OpValidateAddress,
		shipper.OpUploadImage, shipper.OpCloseManifest,
	}
}

// CreateLabel processes the shipment and returns its label.
func (c *Client) CreateLabel(ctx context.Context, s *shipper.Shipment, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Info("Creating FedEx label",
		zap.String("reference", s.ReferenceNumber()),
		zap.String("service_type", s.ServiceTypeCode()),
		zap.Bool("international", s.CrossBorder()),
	)

	raw, err := c.post(ctx, shipper.OpLabel, opts, BuildProcessShipmentRequest(c.config, s, opts))
	if err != nil {
		return nil, err
	}
	resp, err := c.finish(ParseProcessShipmentResponse(raw, LabelImageType(s.ServiceTypeCode(), opts), s.CrossBorder()))
	if err == nil && resp.Success {
		c.logger.Info("FedEx label created",
			zap.String("reference", s.ReferenceNumber()),
			zap.String("tracking_number", resp.Label.TrackingNumber),
		)
	}
	return resp, err
}

// Track returns the scan history of a package.
func (c *Client) Track(ctx context.Context, trackingNumber string, opts shipper.Options) (*shipper.Response, error) {
	if trackingNumber == "" {
		return nil, &shipper.RequiredOptionError{Option: "tracking_number", Rule: "required"}
	}
	if _, ok := PackageIdentifierType(opts); !ok {
		return nil, &shipper.RequiredOptionError{Option: "package_identifier_type", Rule: "oneof"}
	}
	c.logger.Info("Tracking FedEx package", zap.String("tracking_number", trackingNumber))

	raw, err := c.post(ctx, shipper.OpTrack, opts, BuildTrackRequest(c.config, trackingNumber, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseTrackResponse(raw))
}

// ValidateAddress asks FedEx whether loc is a residence or a business.
func (c *Client) ValidateAddress(ctx context.Context, loc shipper.Location, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Debug("Validating FedEx address",
		zap.String("country", loc.CountryCode),
		zap.String("postal_code", loc.PostalCode),
	)

	raw, err := c.post(ctx, shipper.OpValidateAddress, opts, BuildAddressValidationRequest(c.config, loc, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseAddressValidationResponse(raw))
}

// UploadImage stores a letterhead or signature image for commercial
// invoices.
func (c *Client) UploadImage(ctx context.Context, imageID string, image []byte, opts shipper.Options) (*shipper.Response, error) {
	if imageID == "" {
		return nil, &shipper.RequiredOptionError{Option: "image_id", Rule: "required"}
	}
	c.logger.Info("Uploading FedEx image", zap.String("image_id", imageID), zap.Int("bytes", len(image)))

	raw, err := c.post(ctx, shipper.OpUploadImage, opts, BuildUploadImageRequest(c.config, imageID, image, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseUploadImageResponse(raw))
}

// CloseManifest closes the smart post hub and then the ground day. The
// ground close only runs once the smart post close succeeded; its response
// carries the manifest.
func (c *Client) CloseManifest(ctx context.Context, opts shipper.Options) (*shipper.Response, error) {
	c.logger.Info("Closing FedEx shipments", zap.String("hub_id", orDefault(opts.HubID, defaultCloseHubID)))

	raw, err := c.post(ctx, shipper.OpCloseManifest, opts, BuildSmartPostCloseRequest(c.config, opts))
	if err != nil {
		return nil, err
	}
	resp, err := c.finish(ParseSmartPostCloseResponse(raw))
	if err != nil || !resp.Success {
		return resp, err
	}

	raw, err = c.post(ctx, shipper.OpCloseManifest, opts, BuildGroundCloseRequest(c.config, opts))
	if err != nil {
		return nil, err
	}
	return c.finish(ParseGroundCloseResponse(raw))
}

func (c *Client) post(ctx context.Context, op shipper.Operation, opts shipper.Options, doc *xmlnode.Node) ([]byte, error) {
	return c.dispatcher.PostXML(ctx, op, endpoint, opts.Test || c.config.Test, doc)
}

func (c *Client) finish(resp *shipper.Response, err error) (*shipper.Response, error) {
	if err != nil {
		var malformed *shipper.MalformedResponseError
		if errors.As(err, &malformed) {
			c.logger.Error("Unparseable FedEx response",
				zap.String("operation", string(malformed.Operation)),
				zap.Int("response_bytes", len(malformed.Body)),
				zap.Error(err),
			)
		}
		return nil, err
	}
	if !resp.Success {
		c.logger.Warn("FedEx rejected request",
			zap.String("operation", string(resp.Operation)),
			zap.String("message", resp.Message),
		)
	}
	c.dispatcher.RecordOutcome(resp)
	return resp, nil
}
