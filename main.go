package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/shipgate/internal/server"
	"github.com/tournevent/shipgate/pkg/shipper"
	"github.com/tournevent/shipgate/pkg/shipper/endicia"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipgate",
	Short:   "Multi-carrier shipping gateway for Endicia and FedEx",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Quote a single-package shipment",
	RunE:  runRates,
}

var trackCmd = &cobra.Command{
	Use:   "track <carrier> <tracking-number>",
	Short: "Print the scan history of a package",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrack,
}

var rateFlags struct {
	carriers    []string
	service     string
	fromZip     string
	fromCountry string
	toZip       string
	toCountry   string
	weightOz    float64
	length      float64
	width       float64
	height      float64
	flatRate    bool
	test        bool
}

var trackFlags struct {
	idType string
	test   bool
}

func init() {
	f := ratesCmd.Flags()
	f.StringSliceVar(&rateFlags.carriers, "carrier", nil, "carriers to quote (default all)")
	f.StringVar(&rateFlags.service, "service", endicia.MailClassPriority, "service type code")
	f.StringVar(&rateFlags.fromZip, "from-zip", "", "origin postal code")
	f.StringVar(&rateFlags.fromCountry, "from-country", "US", "origin country code")
	f.StringVar(&rateFlags.toZip, "to-zip", "", "destination postal code")
	f.StringVar(&rateFlags.toCountry, "to-country", "US", "destination country code")
	f.Float64Var(&rateFlags.weightOz, "weight-oz", 16, "package weight in ounces")
	f.Float64Var(&rateFlags.length, "length", 0, "package length in inches")
	f.Float64Var(&rateFlags.width, "width", 0, "package width in inches")
	f.Float64Var(&rateFlags.height, "height", 0, "package height in inches")
	f.BoolVar(&rateFlags.flatRate, "flat-rate", false, "also list Endicia flat-rate prices for the service")
	f.BoolVar(&rateFlags.test, "test", false, "use carrier test endpoints")
	_ = ratesCmd.MarkFlagRequired("from-zip")
	_ = ratesCmd.MarkFlagRequired("to-zip")

	trackCmd.Flags().StringVar(&trackFlags.idType, "id-type", "", "FedEx package identifier type")
	trackCmd.Flags().BoolVar(&trackFlags.test, "test", false, "use carrier test endpoints")

	rootCmd.AddCommand(serveCmd, ratesCmd, trackCmd)
}

// app is what every command needs once configuration is loaded.
type app struct {
	logger   *otelzap.Logger
	registry *shipper.Registry
	test     bool
	port     int
	version  string
	shutdown func(context.Context) error
}

func setup(ctx context.Context, reg prometheus.Registerer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		shutdown = func(context.Context) error { return nil }
	}

	return &app{
		logger:   logger,
		registry: initShipperRegistry(cfg, logger, tracer, reg),
		test:     cfg.Test,
		port:     cfg.Port,
		version:  cfg.Version,
		shutdown: shutdown,
	}, nil
}

func (a *app) close(ctx context.Context) {
	_ = a.shutdown(ctx)
	_ = a.logger.Sync()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	a.logger.Info("Starting shipgate",
		zap.Int("port", a.port),
		zap.String("version", a.version),
		zap.Strings("carriers", a.registry.Names()),
	)

	srv := server.New(server.Config{Port: a.port, Test: a.test}, a.registry, a.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runRates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	s, err := shipper.NewShipment(shipper.ShipmentParams{
		ServiceTypeCode: rateFlags.service,
		PaymentType:     shipper.PaymentBillToAccount,
		ReferenceNumber: "cli-quote",
		PrintMethodCode: string(shipper.LabelPDF),
		Shipper:         shipper.Location{PostalCode: rateFlags.fromZip, CountryCode: rateFlags.fromCountry},
		Destination:     shipper.Location{PostalCode: rateFlags.toZip, CountryCode: rateFlags.toCountry},
		Packages: []shipper.Package{{
			Weight:     rateFlags.weightOz,
			WeightUnit: shipper.WeightOZ,
			Length:     rateFlags.length,
			Width:      rateFlags.width,
			Height:     rateFlags.height,
		}},
	})
	if err != nil {
		return err
	}

	opts := shipper.Options{Test: rateFlags.test || a.test}
	responses, errs := a.registry.FindRatesFromCarriers(ctx, s, opts, rateFlags.carriers)

	var rates []shipper.RateEstimate
	for _, resp := range responses {
		if !resp.Success {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", resp.Carrier, resp.Message)
			continue
		}
		rates = append(rates, resp.Rates...)
	}
	for _, err := range errs {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	if rateFlags.flatRate {
		rates = append(rates, endicia.FlatRateEstimates(rateFlags.service)...)
	}

	shipper.SortRates(rates)
	return printRates(cmd.OutOrStdout(), rates)
}

func printRates(out io.Writer, rates []shipper.RateEstimate) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CARRIER\tSERVICE\tCODE\tPRICE\tDAYS")
	for _, r := range rates {
		days := "-"
		if r.TransitDays > 0 {
			days = fmt.Sprint(r.TransitDays)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f %s\t%s\n", r.Carrier, r.ServiceName, r.ServiceCode, r.TotalPrice.Amount, r.TotalPrice.Currency, days)
	}
	return w.Flush()
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	carrier, err := a.registry.GetFor(args[0], shipper.OpTrack)
	if err != nil {
		return err
	}
	resp, err := carrier.Track(ctx, args[1], shipper.Options{
		Test:                  trackFlags.test || a.test,
		PackageIdentifierType: trackFlags.idType,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%s: %s", resp.Carrier, resp.Message)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Tracking %s\n", resp.Tracking.TrackingNumber)
	for _, ev := range resp.Tracking.Events {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ev.Timestamp.Format("2006-01-02 15:04 MST"), ev.Description, ev.Location)
	}
	return w.Flush()
}
