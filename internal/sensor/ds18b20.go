package sensor

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ds18b20"

	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

// DS18B20Reader reads DS18B20 probes sharing one 1-wire bus.
type DS18B20Reader struct {
	log        *slog.Logger
	name       string
	bus        onewire.Bus
	resolution int
	devs       map[uint64]*ds18b20.Dev
}

func NewDS18B20Reader(log *slog.Logger, name string, bus onewire.Bus, resolution int, channels []model.Channel) *DS18B20Reader {
	r := &DS18B20Reader{
		log:        log,
		name:       name,
		bus:        bus,
		resolution: resolution,
		devs:       make(map[uint64]*ds18b20.Dev, len(channels)),
	}

	for _, ch := range channels {
		if _, err := r.device(ch.Address); err != nil {
			// Absent probes are retried on every read.
			log.Warn("probe not available",
				slog.String("channel", ch.String()),
				sl.Err(err),
			)
		}
	}

	return r
}

func (r *DS18B20Reader) Name() string {
	return r.name
}

// RequestAll starts a conversion on every probe and waits for it to finish.
// At 12-bit resolution this takes up to 750ms.
func (r *DS18B20Reader) RequestAll() error {
	if err := ds18b20.ConvertAll(r.bus, r.resolution); err != nil {
		return fmt.Errorf("failed to convert on bus %s: %w", r.name, err)
	}
	return nil
}

func (r *DS18B20Reader) Read(ch model.Channel) float64 {
	dev, err := r.device(ch.Address)
	if err != nil {
		return model.SentinelDisconnectedC
	}

	t, err := dev.LastTemp()
	if err != nil {
		r.log.Debug("failed to read probe",
			slog.String("channel", ch.String()),
			sl.Err(err),
		)
		return model.SentinelDisconnectedC
	}

	return Celsius(t)
}

func (r *DS18B20Reader) Close() error {
	for addr, dev := range r.devs {
		if err := dev.Halt(); err != nil {
			return fmt.Errorf("failed to halt probe %016x: %w", addr, err)
		}
	}
	return nil
}

func (r *DS18B20Reader) device(addr uint64) (*ds18b20.Dev, error) {
	if dev, ok := r.devs[addr]; ok {
		return dev, nil
	}
	dev, err := ds18b20.New(r.bus, onewire.Address(addr), r.resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to open probe %016x: %w", addr, err)
	}
	r.devs[addr] = dev
	return dev, nil
}

func Celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Celsius)
}
