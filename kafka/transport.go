package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// CreateTransport builds the writer transport, adding TLS and SASL when
// enabled.
func CreateTransport(cfg *Config) (*kafkago.Transport, error) {
	t := &kafkago.Transport{IdleTimeout: cfg.IdleTimeout, MetadataTTL: cfg.MetadataTTL}
	if cfg.TLS.Enabled {
		tc, err := cfg.TLS.build()
		if err != nil {
			return nil, fmt.Errorf("kafka tls: %w", err)
		}
		t.TLS = tc
	}
	if cfg.SASL.Enabled {
		m, err := cfg.SASL.mechanism()
		if err != nil {
			return nil, fmt.Errorf("kafka sasl: %w", err)
		}
		t.SASL = m
	}
	return t, nil
}

func (c TLSConfig) build() (*tls.Config, error) {
	tc := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.SkipVerify}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = x509.NewCertPool()
		if !tc.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", c.CAFile)
		}
	}
	if c.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, err
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func (c SASLConfig) mechanism() (sasl.Mechanism, error) {
	switch c.Mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	}
	return nil, fmt.Errorf("unsupported mechanism %q", c.Mechanism)
}

var compressionCodecs = map[string]kafkago.Compression{
	"none": 0,
	"gzip": kafkago.Gzip,
	"lz4":  kafkago.Lz4,
	"zstd": kafkago.Zstd,
}

// ResolveCompression maps a compression name to a codec. Unknown names use
// snappy.
func ResolveCompression(name string) kafkago.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafkago.Snappy
}
