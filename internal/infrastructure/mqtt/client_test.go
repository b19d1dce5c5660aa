package mqtt

import (
	"testing"

	"github.com/dlcdb/inventory-core/internal/infrastructure/config"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "inventory-scan-test",
		},
		ScanTopic: "dlcdb/inventory/scans/#",
		QoS:       1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     30,
		},
	}
}

func TestBuildClientOptions(t *testing.T) {
	t.Run("plain broker", func(t *testing.T) {
		opts := buildClientOptions(testMQTTConfig())

		if len(opts.Servers) != 1 {
			t.Fatalf("got %d brokers, want 1", len(opts.Servers))
		}
		if got := opts.Servers[0].String(); got != "tcp://localhost:1883" {
			t.Errorf("broker URL = %q, want tcp://localhost:1883", got)
		}
		if opts.ClientID != "inventory-scan-test" {
			t.Errorf("client id = %q", opts.ClientID)
		}
		if !opts.AutoReconnect {
			t.Error("auto-reconnect should be enabled")
		}
		if !opts.CleanSession {
			t.Error("clean session should be enabled")
		}
	})

	t.Run("tls broker", func(t *testing.T) {
		cfg := testMQTTConfig()
		cfg.Broker.TLS = true
		opts := buildClientOptions(cfg)

		if got := opts.Servers[0].Scheme; got != "ssl" {
			t.Errorf("scheme = %q, want ssl", got)
		}
		if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
			t.Error("TLS config should enforce the minimum version")
		}
	})

	t.Run("credentials only when set", func(t *testing.T) {
		opts := buildClientOptions(testMQTTConfig())
		if opts.Username != "" {
			t.Errorf("username = %q, want empty", opts.Username)
		}

		cfg := testMQTTConfig()
		cfg.Auth.Username = "scanner"
		cfg.Auth.Password = "hunter2"
		opts = buildClientOptions(cfg)
		if opts.Username != "scanner" || opts.Password != "hunter2" {
			t.Error("credentials should be applied when configured")
		}
	})
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(topic string, payload []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, handler, ErrInvalidTopic},
		{"qos out of range", "dlcdb/inventory/scans/#", 3, handler, ErrInvalidQoS},
		{"not connected", "dlcdb/inventory/scans/#", 1, handler, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Subscribe(tt.topic, tt.qos, tt.handler)
			if err == nil {
				t.Fatal("Subscribe() error = nil")
			}
			if tt.wantErr != nil && err != tt.wantErr {
				// nil handler case wraps, direct sentinels compare.
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
