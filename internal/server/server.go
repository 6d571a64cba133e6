package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipping gateway.
type Server struct {
	port     int
	test     bool
	registry *shipper.Registry
	logger   *otelzap.Logger
	gatherer prometheus.Gatherer
	validate *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Port int
	// Test forces every carrier call onto the carrier's test endpoint.
	Test bool
	// Gatherer serves /metrics; the default registry when nil.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		test:     cfg.Test,
		registry: registry,
		logger:   logger,
		gatherer: gatherer,
		validate: newValidator(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/carriers", s.handleCarriers)
	mux.HandleFunc("POST /v1/rates", s.handleRates)
	mux.HandleFunc("POST /v1/labels", s.handleLabel)
	mux.HandleFunc("POST /v1/tracking", s.handleTracking)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	carriers := make([]carrierOutput, 0, s.registry.Count())
	for _, sh := range s.registry.All() {
		ops := make([]string, 0, len(sh.Operations()))
		for _, op := range sh.Operations() {
			ops = append(ops, string(op))
		}
		carriers = append(carriers, carrierOutput{Name: sh.Name(), Operations: ops})
	}
	writeJSON(w, http.StatusOK, map[string]any{"carriers": carriers})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !s.decode(w, r, &req) {
		return
	}
	shipment, err := req.Shipment.toShipment()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	s.logger.Ctx(ctx).Info("Finding rates",
		zap.Strings("carriers", req.Carriers),
		zap.String("destination_country", shipment.Destination().CountryCode),
	)

	responses, errs := s.registry.FindRatesFromCarriers(ctx, shipment, req.Options.toOptions(s.test), req.Carriers)

	out := rateOutputs{Rates: []rateOutput{}, Errors: []string{}}
	var rates []shipper.RateEstimate
	for _, resp := range responses {
		if !resp.Success {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %s", resp.Carrier, resp.Message))
			continue
		}
		rates = append(rates, resp.Rates...)
	}
	for _, err := range errs {
		s.logger.Ctx(ctx).Warn("Carrier rating failed", zap.Error(err))
		out.Errors = append(out.Errors, err.Error())
	}

	shipper.SortRates(rates)
	for _, rate := range rates {
		out.Rates = append(out.Rates, newRateOutput(rate))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if !s.decode(w, r, &req) {
		return
	}
	shipment, err := req.Shipment.toShipment()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	carrier, err := s.registry.GetFor(req.Carrier, shipper.OpLabel)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := carrier.CreateLabel(r.Context(), shipment, req.Options.toOptions(s.test))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !resp.Success {
		writeJSON(w, http.StatusUnprocessableEntity, newCarrierRejection(resp))
		return
	}
	writeJSON(w, http.StatusOK, newLabelOutput(resp))
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if !s.decode(w, r, &req) {
		return
	}
	carrier, err := s.registry.GetFor(req.Carrier, shipper.OpTrack)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := carrier.Track(r.Context(), req.TrackingNumber, req.Options.toOptions(s.test))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !resp.Success {
		writeJSON(w, http.StatusUnprocessableEntity, newCarrierRejection(resp))
		return
	}
	writeJSON(w, http.StatusOK, newTrackingOutput(resp))
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shipper.ErrRequiredOption), errors.Is(err, shipper.ErrInvalidAddressType):
		return http.StatusBadRequest
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return http.StatusNotFound
	case errors.Is(err, shipper.ErrIncompleteCoverage):
		return http.StatusNotImplemented
	case errors.Is(err, shipper.ErrTransport), errors.Is(err, shipper.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorOutput{Error: message})
}
