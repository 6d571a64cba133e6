package transport

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/xmlnode"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Recorder receives per-request metrics.
type Recorder interface {
	RecordRequest(operation, carrier, status string, duration float64)
	RecordError(carrier, errorType string)
}

// Dispatcher serializes documents, picks the endpoint and posts them for one
// carrier. It is safe for concurrent use.
type Dispatcher struct {
	carrier  string
	poster   Poster
	logger   *otelzap.Logger
	tracer   trace.Tracer
	recorder Recorder
	retry    *shipper.RetryPolicy
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder records request metrics.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithRetry retries retry-safe operations under policy. Mutating operations
// are always sent once.
func WithRetry(policy shipper.RetryPolicy) Option {
	return func(d *Dispatcher) { d.retry = &policy }
}

type noRetryKey struct{}

// WithoutRetry marks ctx so Send posts exactly once even when the dispatcher
// has a retry policy. Callers that bound their own attempts use it.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func retryDisabled(ctx context.Context) bool {
	off, _ := ctx.Value(noRetryKey{}).(bool)
	return off
}

// NewDispatcher creates a dispatcher for carrier. A nil logger or tracer
// disables logging or tracing.
func NewDispatcher(carrier string, poster Poster, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(carrier)
	}
	d := &Dispatcher{
		carrier: carrier,
		poster:  poster,
		logger:  logger,
		tracer:  tracer,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// PostXML sends doc as a raw XML body.
func (d *Dispatcher) PostXML(ctx context.Context, op shipper.Operation, ep Endpoint, test bool, doc *xmlnode.Node) ([]byte, error) {
	return d.Send(ctx, op, ep.URL(test), ContentTypeXML, doc.Bytes())
}

// PostForm sends form URL-encoded.
func (d *Dispatcher) PostForm(ctx context.Context, op shipper.Operation, ep Endpoint, test bool, form url.Values) ([]byte, error) {
	return d.Send(ctx, op, ep.URL(test), ContentTypeForm, []byte(form.Encode()))
}

// Send posts body to target. Every failure comes back as a
// *shipper.TransportError tagged with the carrier and operation.
func (d *Dispatcher) Send(ctx context.Context, op shipper.Operation, target, contentType string, body []byte) ([]byte, error) {
	ctx, span := d.tracer.Start(ctx, d.carrier+"."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("carrier", d.carrier),
			attribute.String("operation", string(op)),
			attribute.String("url", target),
			attribute.Bool("retry_safe", op.RetrySafe()),
		),
	)
	defer span.End()

	d.logger.Ctx(ctx).Debug("Posting carrier request",
		zap.String("carrier", d.carrier),
		zap.String("operation", string(op)),
		zap.String("url", target),
		zap.Int("request_bytes", len(body)),
	)

	start := time.Now()
	post := func() ([]byte, error) {
		raw, err := d.poster.Post(ctx, target, contentType, body)
		if err != nil {
			return nil, d.transportError(op, target, err)
		}
		return raw, nil
	}

	var raw []byte
	var err error
	if d.retry != nil && !retryDisabled(ctx) {
		raw, err = shipper.Retry(ctx, op, *d.retry, post)
	} else {
		raw, err = post()
	}
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Ctx(ctx).Error("Carrier request failed",
			zap.String("carrier", d.carrier),
			zap.String("operation", string(op)),
			zap.String("url", target),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		d.record(op, "error", elapsed)
		if d.recorder != nil {
			d.recorder.RecordError(d.carrier, "transport")
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("response_bytes", len(raw)))
	d.logger.Ctx(ctx).Info("Carrier request completed",
		zap.String("carrier", d.carrier),
		zap.String("operation", string(op)),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_bytes", len(raw)),
	)
	d.record(op, "ok", elapsed)
	return raw, nil
}

func (d *Dispatcher) record(op shipper.Operation, status string, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.RecordRequest(string(op), d.carrier, status, elapsed.Seconds())
	}
}

func (d *Dispatcher) transportError(op shipper.Operation, target string, err error) error {
	var te *shipper.TransportError
	if errors.As(err, &te) {
		tagged := *te
		tagged.Carrier = d.carrier
		tagged.Operation = op
		if tagged.URL == "" {
			tagged.URL = target
		}
		return &tagged
	}
	return &shipper.TransportError{Carrier: d.carrier, Operation: op, URL: target, Cause: err}
}

// Carrier returns the carrier the dispatcher posts for.
func (d *Dispatcher) Carrier() string {
	return d.carrier
}

// Logger returns the dispatcher's logger.
func (d *Dispatcher) Logger() *otelzap.Logger {
	return d.logger
}

// Tracer returns the dispatcher's tracer.
func (d *Dispatcher) Tracer() trace.Tracer {
	return d.tracer
}

// RecordOutcome counts a parsed carrier-level rejection.
func (d *Dispatcher) RecordOutcome(resp *shipper.Response) {
	if d.recorder != nil && resp != nil && !resp.Success {
		d.recorder.RecordError(d.carrier, string(resp.Operation))
	}
}
