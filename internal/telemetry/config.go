package telemetry

import "fmt"

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Enabled selects the SDK provider; when false a noop tracer is used.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector host:port. Empty keeps spans
	// in-process, which is still useful for log correlation.
	Endpoint string

	// Insecure sends to the collector over plain HTTP.
	Insecure bool

	// SampleRate is the fraction of traces sampled, in [0,1].
	SampleRate float64
}

// DefaultConfig disables tracing; the CLI turns it on when an endpoint is set.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "runeforge",
		ServiceVersion: "dev",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Enabled && c.ServiceName == "" {
		return fmt.Errorf("telemetry: service name cannot be empty")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry: sample rate must be within [0,1], got %v", c.SampleRate)
	}
	return nil
}
