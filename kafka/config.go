package kafka

import (
	"fmt"
	"time"
)

// DefaultTopic receives snapshot events.
const DefaultTopic = "jobflow.snapshots"

// Config holds Kafka connection and producer configuration.
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// GroupID is used by Subscriber; empty reads without a consumer group.
	GroupID string `mapstructure:"group_id"`

	EnableTLS     bool   `mapstructure:"enable_tls"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	TLSCertFile   string `mapstructure:"tls_cert_file"`
	TLSKeyFile    string `mapstructure:"tls_key_file"`

	EnableSASL    bool   `mapstructure:"enable_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`

	Compression  string `mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int    `mapstructure:"retries"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout string `mapstructure:"batch_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	RequiredAcks int    `mapstructure:"required_acks"`

	DialTimeout string `mapstructure:"dial_timeout"`
	IdleTimeout string `mapstructure:"idle_timeout"`
	MetadataTTL string `mapstructure:"metadata_ttl"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "10ms"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "10s"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30s"
	}
	if c.MetadataTTL == "" {
		c.MetadataTTL = "6s"
	}
	if c.SASLMechanism == "" && c.EnableSASL {
		c.SASLMechanism = "PLAIN"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}
	for _, d := range []struct{ name, val string }{
		{"batch_timeout", c.BatchTimeout},
		{"write_timeout", c.WriteTimeout},
		{"dial_timeout", c.DialTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"metadata_ttl", c.MetadataTTL},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	if c.EnableSASL {
		switch c.SASLMechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASLMechanism)
		}
		if c.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	return nil
}

// ParseDuration parses a duration string, returning zero on empty or bad input.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
