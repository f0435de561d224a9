package sensor

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"periph.io/x/conn/v3/physic"

	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

func TestParseAddress(t *testing.T) {
	want := uint64(0x22DF807D1F64FF28)

	for _, in := range []string{
		"28FF641F7D80DF22",
		"28-FF-64-1F-7D-80-DF-22",
		"28:ff:64:1f:7d:80:df:22",
	} {
		got, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAddress(%q) = %016x, want %016x", in, got, want)
		}
		if byte(got) != 0x28 {
			t.Fatalf("family code should be the low byte, got %02x", byte(got))
		}
	}

	for _, bad := range []string{"", "28FF", "zz", "28FF641F7D80DF2233"} {
		if _, err := ParseAddress(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCelsius(t *testing.T) {
	if got := Celsius(physic.ZeroCelsius + 23500*physic.MilliCelsius); got != 23.5 {
		t.Fatalf("expected 23.5, got %v", got)
	}
	if got := Celsius(physic.ZeroCelsius - 5*physic.Celsius); got != -5 {
		t.Fatalf("expected -5, got %v", got)
	}
}

func TestIIOReader(t *testing.T) {
	dir := t.TempDir()
	write := func(name, value string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(value), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write(iioTemperatureFile, "21500\n")
	write(iioHumidityFile, "48000\n")

	r := NewIIOReader(sl.Discard(), "dht", dir)
	if err := r.RequestAll(); err != nil {
		t.Fatalf("request: %v", err)
	}

	temp := model.Channel{Name: "dht-temp", Quantity: model.QuantityTemperature}
	hum := model.Channel{Name: "dht-humidity", Quantity: model.QuantityHumidity}

	if got := r.Read(temp); got != 21.5 {
		t.Fatalf("expected 21.5, got %v", got)
	}
	if got := r.Read(hum); got != 48 {
		t.Fatalf("expected 48, got %v", got)
	}

	write(iioHumidityFile, "garbage")
	if got := r.Read(hum); !math.IsNaN(got) {
		t.Fatalf("expected NaN for unparsable value, got %v", got)
	}

	if err := os.Remove(filepath.Join(dir, iioTemperatureFile)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := r.Read(temp); !math.IsNaN(got) {
		t.Fatalf("expected NaN for missing file, got %v", got)
	}
}

func TestIIOReaderMissingDevice(t *testing.T) {
	r := NewIIOReader(sl.Discard(), "dht", filepath.Join(t.TempDir(), "absent"))
	if err := r.RequestAll(); err == nil {
		t.Fatalf("expected error for missing device directory")
	}
}
