package influxdb_test

import (
	"errors"
	"testing"

	"github.com/dlcdb/inventory-core/internal/infrastructure/config"
	"github.com/dlcdb/inventory-core/internal/infrastructure/influxdb"
)

func TestConnectDisabled(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: false,
		URL:     "http://127.0.0.1:8086",
	}

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "test-token",
		Org:     "dlcdb",
		Bucket:  "inventory",
	}

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
