// Package sensor wraps the sensing hardware behind a request/read boundary.
//
// A Reader first triggers a conversion on every device it owns, then hands
// out the converted value per channel. Readers never fail a Read: a device
// that cannot be read yields the driver's fault sentinel, which the
// classifier later discards.
package sensor

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

type Reader interface {
	RequestAll() error
	Read(ch model.Channel) float64
	Name() string
	Close() error
}

// ParseAddress parses a 1-wire ROM code written family byte first, e.g.
// "28FF641F7D80DF22" or "28-FF-64-1F-7D-80-DF-22". The result is little
// endian so the family code lands in the low byte.
func ParseAddress(s string) (uint64, error) {
	clean := strings.NewReplacer("-", "", ":", "", " ", "", "0x", "", ",", "").Replace(strings.TrimSpace(s))
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid 1-wire address %q: %w", s, err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("invalid 1-wire address %q: want 8 bytes, got %d", s, len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}
