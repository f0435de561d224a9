package classifier

import (
	"math"
	"testing"

	"github.com/speedwagon-io/trafo-telemetry/internal/model"
)

func TestClassifySentinels(t *testing.T) {
	c := NewDS18B20()

	if got := c.Classify(-127); got != model.VerdictFault {
		t.Fatalf("expected -127 to be a fault, got %s", got)
	}
	if got := c.Classify(85); got != model.VerdictFault {
		t.Fatalf("expected 85 to be a fault, got %s", got)
	}
	if got := c.Classify(math.NaN()); got != model.VerdictFault {
		t.Fatalf("expected NaN to be a fault, got %s", got)
	}
	if got := c.Classify(math.Inf(-1)); got != model.VerdictFault {
		t.Fatalf("expected -Inf to be a fault, got %s", got)
	}

	for _, v := range []float64{0, 23.5, -5.1, 84.9375, 85.0625, -126.9} {
		if got := c.Classify(v); got != model.VerdictValid {
			t.Fatalf("expected %v to be valid, got %s", v, got)
		}
	}
}

func TestFormat(t *testing.T) {
	c := New()

	cases := map[float64]string{
		23.5:    "23.50",
		-5.1:    "-5.10",
		0:       "0.00",
		1.005:   "1.00",
		100.125: "100.12",
		-0.25:   "-0.25",
	}
	for in, want := range cases {
		if got := string(c.Format(in)); got != want {
			t.Errorf("Format(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestPayload(t *testing.T) {
	c := NewDS18B20()

	if p, ok := c.Payload(85); ok || p != nil {
		t.Fatalf("expected no payload for sentinel, got %q", p)
	}

	p, ok := c.Payload(21.4375)
	if !ok {
		t.Fatalf("expected payload for valid reading")
	}
	if string(p) != "21.44" {
		t.Fatalf("unexpected payload %q", p)
	}
}
