package spec

import (
	"errors"
)

// LogField log field
type LogField int

const (
	RunID LogField = iota
	URI
	Param
	Action
)

func (c LogField) String() string {
	switch c {
	case RunID:
		return "run"
	case URI:
		return "uri"
	case Param:
		return "param"
	case Action:
		return "action"
	default:
		return "unknown"
	}
}

var (
	ErrConflictingModes = errors.New("cannot specify both --enable and --disable")
	ErrNoMode           = errors.New("must specify --enable, --disable, or --status")
	ErrMissingActors    = errors.New("both --nav-actor and --hover-actor are required (unless using --disable)")

	// ErrReported marks a failure that was already printed to the operator.
	ErrReported = errors.New("failure reported")
)

// Remote parameters consumed by the flight controller firmware.
const (
	ParamPolicySwitchEnable    = "rlt.ps_enable"
	ParamPolicySwitchThreshold = "rlt.ps_thresh"
)

const (
	DefaultRadioURI       = "radio://0/80/2M"
	DefaultRadioThreshold = 0.5

	DefaultEvaluateHost      = "localhost"
	DefaultEvaluatePort      = 8080
	DefaultEvaluateThreshold = 0.3

	MinRecommendedThreshold = 0.1
	MaxRecommendedThreshold = 2.0
)

// TargetPosition is the hover target the firmware and the evaluation
// runtime switch around. It is informational here.
var TargetPosition = [3]float64{0.0, 1.2, 0.0}

// ThresholdInRange reports whether t lies in the recommended switching range.
func ThresholdInRange(t float64) bool {
	return t >= MinRecommendedThreshold && t <= MaxRecommendedThreshold
}
