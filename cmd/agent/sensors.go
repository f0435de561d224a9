package main

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ds248x"
	"periph.io/x/host/v3"

	"github.com/speedwagon-io/trafo-telemetry/internal/agent"
	"github.com/speedwagon-io/trafo-telemetry/internal/classifier"
	"github.com/speedwagon-io/trafo-telemetry/internal/config"
	"github.com/speedwagon-io/trafo-telemetry/internal/lib/logger/sl"
	"github.com/speedwagon-io/trafo-telemetry/internal/model"
	"github.com/speedwagon-io/trafo-telemetry/internal/sensor"
)

// buildGroups opens the sensor hardware for every configured group. The
// returned func releases the I2C buses.
func buildGroups(log *slog.Logger, cfg *config.SensorsConfig) ([]*agent.Group, func(), error) {
	var (
		groups   []*agent.Group
		buses    []i2c.BusCloser
		hostInit bool
	)

	closeBuses := func() {
		for _, b := range buses {
			if err := b.Close(); err != nil {
				log.Error("failed to close i2c bus", sl.Err(err))
			}
		}
	}

	for _, g := range cfg.Groups {
		channels, err := buildChannels(g)
		if err != nil {
			closeBuses()
			return nil, nil, err
		}

		var (
			reader sensor.Reader
			cls    *classifier.Classifier
		)

		switch g.Kind {
		case config.KindDS18B20:
			if !hostInit {
				if _, err := host.Init(); err != nil {
					closeBuses()
					return nil, nil, fmt.Errorf("failed to initialize periph host: %w", err)
				}
				hostInit = true
			}

			bus, err := i2creg.Open(g.I2CBus)
			if err != nil {
				closeBuses()
				return nil, nil, fmt.Errorf("group %s: failed to open i2c bus %q: %w", g.Name, g.I2CBus, err)
			}
			buses = append(buses, bus)

			ow, err := ds248x.New(bus, g.I2CAddress, &ds248x.DefaultOpts)
			if err != nil {
				closeBuses()
				return nil, nil, fmt.Errorf("group %s: failed to open 1-wire bridge: %w", g.Name, err)
			}

			reader = sensor.NewDS18B20Reader(log, g.Name, ow, g.Resolution, channels)
			cls = classifier.NewDS18B20()
		case config.KindIIO:
			reader = sensor.NewIIOReader(log, g.Name, g.DevicePath)
			cls = classifier.New()
		default:
			closeBuses()
			return nil, nil, fmt.Errorf("group %s: unknown kind %q", g.Name, g.Kind)
		}

		log.Info("sensor group ready",
			slog.String("group", g.Name),
			slog.String("kind", g.Kind),
			slog.Duration("interval", g.Interval),
			slog.Int("channels", len(channels)),
		)

		groups = append(groups, &agent.Group{
			Name:       g.Name,
			Interval:   g.Interval,
			Reader:     reader,
			Classifier: cls,
			Channels:   channels,
		})
	}

	return groups, closeBuses, nil
}

func buildChannels(g config.GroupConfig) ([]model.Channel, error) {
	channels := make([]model.Channel, 0, len(g.Channels))
	for _, c := range g.Channels {
		ch := model.Channel{
			Name:     c.Name,
			Quantity: model.Quantity(c.Quantity),
			Topic:    c.Topic,
		}
		if c.Address != "" {
			addr, err := sensor.ParseAddress(c.Address)
			if err != nil {
				return nil, fmt.Errorf("group %s channel %s: %w", g.Name, c.Name, err)
			}
			ch.Address = addr
		}
		channels = append(channels, ch)
	}
	return channels, nil
}
