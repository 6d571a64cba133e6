package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/shipgate/internal/config"
	"github.com/tournevent/shipgate/internal/telemetry"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/endicia"
	"github.com/tournevent/shipgate/pkg/shipper/fedex"
	"github.com/tournevent/shipgate/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return telemetry.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

// initShipperRegistry registers every enabled carrier. A carrier whose
// credentials are incomplete is logged and skipped so the others still
// serve.
func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, reg prometheus.Registerer) *shipper.Registry {
	registry := shipper.NewRegistry()

	policy := shipper.DefaultRetryPolicy
	policy.MaxTries = cfg.RetryAttempts
	opts := []transport.Option{
		transport.WithRecorder(telemetry.NewMetrics(reg)),
		transport.WithRetry(policy),
	}

	if cfg.Endicia.Enabled {
		ec, err := endicia.New(endicia.Config{
			RequesterID:       cfg.Endicia.RequesterID,
			AccountID:         cfg.Endicia.AccountID,
			PassPhrase:        cfg.Endicia.PassPhrase,
			PartnerCustomerID: cfg.Endicia.PartnerCustomerID,
			Test:              cfg.Test,
			Timeout:           cfg.CarrierTimeout,
			UseMock:           cfg.Endicia.UseMock,
		}, logger, tracer, opts...)
		if err != nil {
			logger.Warn("Endicia disabled", zap.Error(err))
		} else {
			registry.Register(ec)
		}
	}

	if cfg.FedEx.Enabled {
		fc, err := fedex.New(fedex.Config{
			Key:         cfg.FedEx.Key,
			Password:    cfg.FedEx.Password,
			Account:     cfg.FedEx.Account,
			MeterNumber: cfg.FedEx.MeterNumber,
			Test:        cfg.Test,
			Timeout:     cfg.CarrierTimeout,
			UseMock:     cfg.FedEx.UseMock,
		}, logger, tracer, opts...)
		if err != nil {
			logger.Warn("FedEx disabled", zap.Error(err))
		} else {
			registry.Register(fc)
		}
	}

	return registry
}
