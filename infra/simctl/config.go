package simctl

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

// Config defines the MQTT connection to the simulator bridge.
type Config struct {
	Broker           string          `json:"broker" yaml:"broker"`
	ClientID         string          `json:"client_id" yaml:"client_id"`
	Username         string          `json:"username" yaml:"username"`
	Password         string          `json:"password" yaml:"password"`
	TopicPrefix      string          `json:"topic_prefix" yaml:"topic_prefix"`
	Codec            string          `json:"codec" yaml:"codec"`
	RequestTimeoutMS int             `json:"request_timeout_ms" yaml:"request_timeout_ms"`
	StepLengthMS     int             `json:"step_length_ms" yaml:"step_length_ms"`
	UseTLS           bool            `json:"use_tls" yaml:"use_tls"`
	ClientCert       string          `json:"client_cert" yaml:"client_cert"`
	ClientKey        string          `json:"client_key" yaml:"client_key"`
	CABundle         string          `json:"ca_bundle" yaml:"ca_bundle"`
	AuthMethod       string          `json:"auth_method" yaml:"auth_method"`
	QoS              map[string]byte `json:"qos" yaml:"qos"`
	LWTTopic         string          `json:"lwt_topic" yaml:"lwt_topic"`
	LWTPayload       string          `json:"lwt_payload" yaml:"lwt_payload"`
	LWTQoS           byte            `json:"lwt_qos" yaml:"lwt_qos"`
	LWTRetain        bool            `json:"lwt_retain" yaml:"lwt_retain"`
	TLSConfig        *tls.Config     `json:"-" yaml:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "platoon-manager"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "sim"
	}
	if c.Codec == "" {
		c.Codec = CodecJSON
	}
	if c.RequestTimeoutMS <= 0 {
		c.RequestTimeoutMS = 2000
	}
	if c.StepLengthMS <= 0 {
		c.StepLengthMS = 100
	}
}

// Validate checks the connection parameters.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("simctl: broker is required")
	}
	if _, err := CodecByName(c.Codec); err != nil {
		return err
	}
	switch c.AuthMethod {
	case "", "username_password", "mtls", "both":
	default:
		return fmt.Errorf("simctl: unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

// RequestTimeout returns the maximum wait for one simulator response.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// StepLength returns the configured simulation step.
func (c Config) StepLength() time.Duration {
	return time.Duration(c.StepLengthMS) * time.Millisecond
}

func (c Config) qos(name string) byte {
	if q, ok := c.QoS[name]; ok {
		return q
	}
	return 1
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s has no certificates", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
