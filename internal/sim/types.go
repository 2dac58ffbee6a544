package sim

import (
	"fmt"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// ControllerKind tags which controller, if any, drives a body.
type ControllerKind uint8

const (
	KindNone ControllerKind = iota
	KindPID
	KindLQR
)

func (k ControllerKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPID:
		return "pid"
	case KindLQR:
		return "lqr"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a config name to a ControllerKind.
func ParseKind(name string) (ControllerKind, error) {
	switch name {
	case "", "none":
		return KindNone, nil
	case "pid":
		return KindPID, nil
	case "lqr":
		return KindLQR, nil
	}
	return KindNone, fmt.Errorf("%q: %w", name, dynamo.ErrUnknownController)
}

// Sample is what a body hands its metrics after each tick.
type Sample struct {
	Tick      int
	Time      float64
	Body      string
	State     dynamo.State
	Params    dynamo.Params
	Control   float64
	Target    float64
	HasTarget bool
	Err       error
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Config struct {
	Dt              float64
	HistoryCapacity int
}

func DefaultConfig() Config {
	return Config{
		Dt:              dynamo.Dt,
		HistoryCapacity: DefaultHistoryCapacity,
	}
}
