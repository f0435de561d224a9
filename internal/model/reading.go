package model

type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictFault
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Hardware sentinels reported by DS18B20 drivers.
const (
	SentinelDisconnectedC = -127.0
	SentinelPowerOnResetC = 85.0
)
