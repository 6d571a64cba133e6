package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// CredentialsFile is an optional YAML file whose carrier credentials
	// override the environment.
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`

	// Test sends every carrier call to the carrier's test endpoint.
	Test           bool          `envconfig:"CARRIER_TEST_MODE" default:"false"`
	CarrierTimeout time.Duration `envconfig:"CARRIER_TIMEOUT" default:"30s"`
	RetryAttempts  uint          `envconfig:"CARRIER_RETRY_ATTEMPTS" default:"3"`

	Endicia Endicia `envconfig:"ENDICIA"`
	FedEx   FedEx   `envconfig:"FEDEX"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shipgate"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Endicia holds Endicia label server credentials.
type Endicia struct {
	RequesterID       string `envconfig:"REQUESTER_ID" yaml:"requester_id"`
	AccountID         string `envconfig:"ACCOUNT_ID" yaml:"account_id"`
	PassPhrase        string `envconfig:"PASS_PHRASE" yaml:"pass_phrase"`
	PartnerCustomerID string `envconfig:"PARTNER_CUSTOMER_ID" yaml:"partner_customer_id"`
	Enabled           bool   `envconfig:"ENABLED" default:"true" yaml:"-"`
	UseMock           bool   `envconfig:"USE_MOCK" default:"false" yaml:"-"`
}

// FedEx holds FedEx web services credentials.
type FedEx struct {
	Key         string `envconfig:"KEY" yaml:"key"`
	Password    string `envconfig:"PASSWORD" yaml:"password"`
	Account     string `envconfig:"ACCOUNT" yaml:"account"`
	MeterNumber string `envconfig:"METER_NUMBER" yaml:"meter_number"`
	Enabled     bool   `envconfig:"ENABLED" default:"true" yaml:"-"`
	UseMock     bool   `envconfig:"USE_MOCK" default:"false" yaml:"-"`
}

// credentialsFile is the layout of CredentialsFile.
type credentialsFile struct {
	Endicia *Endicia `yaml:"endicia"`
	FedEx   *FedEx   `yaml:"fedex"`
}

// Load reads configuration from environment variables, then overlays the
// credentials file when one is named.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.CredentialsFile != "" {
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		if err := cfg.ApplyCredentials(raw); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ApplyCredentials overlays the non-empty credentials found in a YAML
// document.
func (c *Config) ApplyCredentials(raw []byte) error {
	var file credentialsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing credentials file: %w", err)
	}
	if e := file.Endicia; e != nil {
		overlay(&c.Endicia.RequesterID, e.RequesterID)
		overlay(&c.Endicia.AccountID, e.AccountID)
		overlay(&c.Endicia.PassPhrase, e.PassPhrase)
		overlay(&c.Endicia.PartnerCustomerID, e.PartnerCustomerID)
	}
	if f := file.FedEx; f != nil {
		overlay(&c.FedEx.Key, f.Key)
		overlay(&c.FedEx.Password, f.Password)
		overlay(&c.FedEx.Account, f.Account)
		overlay(&c.FedEx.MeterNumber, f.MeterNumber)
	}
	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("carrier.test_mode", c.Test),
		attribute.Bool("endicia.enabled", c.Endicia.Enabled),
		attribute.Bool("fedex.enabled", c.FedEx.Enabled),
	}
}
