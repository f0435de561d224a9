// Package classifier separates valid sensor readings from driver fault
// sentinels and renders valid readings as wire payloads.
package classifier

import (
	"fmt"
	"math"

	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

const (
	DefaultWidth     = 4
	DefaultPrecision = 2
)

type Classifier struct {
	sentinels []float64
	width     int
	precision int
}

func New(sentinels ...float64) *Classifier {
	s := make([]float64, len(sentinels))
	copy(s, sentinels)
	return &Classifier{
		sentinels: s,
		width:     DefaultWidth,
		precision: DefaultPrecision,
	}
}

// NewDS18B20 returns a classifier that rejects the disconnected-probe and
// power-on-reset values.
func NewDS18B20() *Classifier {
	return New(model.SentinelDisconnectedC, model.SentinelPowerOnResetC)
}

// Classify reports Fault when v equals a sentinel exactly or is not finite.
func (c *Classifier) Classify(v float64) model.Verdict {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return model.VerdictFault
	}
	for _, s := range c.sentinels {
		if v == s {
			return model.VerdictFault
		}
	}
	return model.VerdictValid
}

func (c *Classifier) Format(v float64) []byte {
	return []byte(fmt.Sprintf("%*.*f", c.width, c.precision, v))
}

// Payload classifies v and returns the formatted payload. ok is false for
// faults, in which case nothing should be published.
func (c *Classifier) Payload(v float64) (payload []byte, ok bool) {
	if c.Classify(v) == model.VerdictFault {
		return nil, false
	}
	return c.Format(v), true
}
