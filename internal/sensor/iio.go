package sensor

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

const (
	iioTemperatureFile = "in_temp_input"
	iioHumidityFile    = "in_humidityrelative_input"
)

// IIOReader reads a DHT11/DHT22 bound to the Linux dht11 IIO driver. The
// kernel performs the conversion on each file read, so RequestAll does
// nothing. Values are exported in milli-units.
type IIOReader struct {
	log  *slog.Logger
	name string
	dir  string
}

func NewIIOReader(log *slog.Logger, name, dir string) *IIOReader {
	return &IIOReader{
		log:  log,
		name: name,
		dir:  dir,
	}
}

func (r *IIOReader) Name() string {
	return r.name
}

func (r *IIOReader) RequestAll() error {
	if _, err := os.Stat(r.dir); err != nil {
		return fmt.Errorf("iio device %s: %w", r.dir, err)
	}
	return nil
}

func (r *IIOReader) Read(ch model.Channel) float64 {
	var file string
	switch ch.Quantity {
	case model.QuantityTemperature:
		file = iioTemperatureFile
	case model.QuantityHumidity:
		file = iioHumidityFile
	default:
		return math.NaN()
	}

	raw, err := os.ReadFile(filepath.Join(r.dir, file))
	if err != nil {
		r.log.Debug("failed to read iio channel",
			slog.String("channel", ch.String()),
			sl.Err(err),
		)
		return math.NaN()
	}

	milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		r.log.Debug("failed to parse iio value",
			slog.String("channel", ch.String()),
			slog.String("value", string(raw)),
			sl.Err(err),
		)
		return math.NaN()
	}

	return float64(milli) / 1000
}

func (r *IIOReader) Close() error {
	return nil
}
