package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
device:
  client_id: Temp_GIMA_01
  sensors_path: sensors.yaml
broker:
  host: 10.110.0.3
  username: telemetry
  password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Broker.Port != 1883 {
		t.Fatalf("expected default port 1883, got %d", cfg.Broker.Port)
	}
	if cfg.Broker.Backoff != 5*time.Second {
		t.Fatalf("expected default backoff 5s, got %s", cfg.Broker.Backoff)
	}
	if cfg.Schedule.ConnectionInterval != 500*time.Millisecond {
		t.Fatalf("expected default connection interval 500ms, got %s", cfg.Schedule.ConnectionInterval)
	}
	if cfg.Watchdog.Uptime != 5000*time.Second || cfg.Watchdog.Disabled {
		t.Fatalf("expected watchdog enabled at 5000s, got %+v", cfg.Watchdog)
	}
	if cfg.Health.Address != ":8080" {
		t.Fatalf("expected default health address :8080, got %s", cfg.Health.Address)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("expected json log format, got %s", cfg.Log.Format)
	}
	if cfg.Journal.MaxRows != 100000 {
		t.Fatalf("expected default journal row limit 100000, got %d", cfg.Journal.MaxRows)
	}
}

func TestLoadWatchdogUptimeBound(t *testing.T) {
	cases := map[string]bool{
		"1ms":          true,
		"2147483648ms": true,
		"2147483649ms": false,
		"4294967295ms": false,
	}
	for uptime, ok := range cases {
		path := writeFile(t, t.TempDir(), "config.yaml", `
device:
  client_id: Temp_GIMA_01
  sensors_path: sensors.yaml
broker:
  host: 10.110.0.3
watchdog:
  uptime: `+uptime+`
`)

		_, err := Load(path)
		if ok && err != nil {
			t.Errorf("uptime %s: unexpected error %v", uptime, err)
		}
		if !ok && (err == nil || !strings.Contains(err.Error(), "watchdog.uptime")) {
			t.Errorf("uptime %s: expected watchdog.uptime error, got %v", uptime, err)
		}
	}
}

func TestLoadRejectsBadWatchdogMode(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
device:
  client_id: Temp_GIMA_01
  sensors_path: sensors.yaml
broker:
  host: 10.110.0.3
watchdog:
  mode: reboot
`)

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "watchdog.mode") {
		t.Fatalf("expected watchdog mode error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestLoadSensors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sensors.yaml", `
site: Trafo_GIMA_01
groups:
  - name: trafo
    channels:
      - address: "28FF641F7D80DF22"
        topic: Temperatur/Trafo_GIMA_01/sensor1
      - address: "28FF641F7FCD6F4D"
        topic: Temperatur/Trafo_GIMA_01/sensor2
  - name: dht
    kind: iio
    interval: 15s
    device_path: /sys/bus/iio/devices/iio:device0
    channels:
      - name: dht-temp
        topic: Temperatur/Trafo_GIMA_01_DHT/temp
      - name: dht-humidity
        quantity: humidity
        topic: Temperatur/Trafo_GIMA_01_DHT/humidity
`)

	cfg, err := LoadSensors(path)
	if err != nil {
		t.Fatalf("load sensors: %v", err)
	}

	if len(cfg.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(cfg.Groups))
	}

	trafo := cfg.Groups[0]
	if trafo.Kind != KindDS18B20 || trafo.Interval != 10*time.Second || trafo.Resolution != 12 || trafo.I2CAddress != 0x18 {
		t.Fatalf("expected ds18b20 defaults, got %+v", trafo)
	}
	if trafo.Channels[1].Name != "trafo-2" || trafo.Channels[1].Quantity != "temperature" {
		t.Fatalf("expected channel defaults, got %+v", trafo.Channels[1])
	}

	dht := cfg.Groups[1]
	if dht.Interval != 15*time.Second || dht.Channels[1].Quantity != "humidity" {
		t.Fatalf("unexpected iio group: %+v", dht)
	}
}

func TestLoadSensorsValidation(t *testing.T) {
	cases := map[string]string{
		"duplicate topic": `
groups:
  - name: trafo
    channels:
      - address: "28FF641F7D80DF22"
        topic: t/1
      - address: "28FF641F7FCD6F4D"
        topic: t/1
`,
		"missing address": `
groups:
  - name: trafo
    channels:
      - topic: t/1
`,
		"unknown kind": `
groups:
  - name: trafo
    kind: dht22
    channels:
      - topic: t/1
`,
		"no groups": `
site: empty
`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "sensors.yaml", data)
			if _, err := LoadSensors(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
