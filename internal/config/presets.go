package config

import (
	"math"
	"sort"

	"github.com/san-kum/pendulab/internal/sim"
)

// Presets are the built-in scenes. "duel" is a PID and an LQR pendulum side
// by side from the same starting state.
var Presets = map[string]*Config{
	"duel": scene(
		controlled("pid", -7, sim.KindPID),
		controlled("lqr", 7, sim.KindLQR),
	),
	"pid": scene(controlled("pid", 0, sim.KindPID)),
	"lqr": scene(func() BodyConfig {
		b := controlled("lqr", 0, sim.KindLQR)
		b.Init = InitConfig{Angle: math.Pi, AngularVelocity: 0.1}
		return b
	}()),
	"free": scene(func() BodyConfig {
		b := DefaultBody("free")
		b.Init = InitConfig{Angle: 1.0}
		return b
	}()),
	"damped": scene(func() BodyConfig {
		b := DefaultBody("damped")
		b.Init = InitConfig{Angle: 1.0}
		b.Params.Friction = 0.1
		return b
	}()),
}

func scene(bodies ...BodyConfig) *Config {
	cfg := DefaultConfig()
	cfg.Bodies = bodies
	return cfg
}

func controlled(name string, offset float64, kind sim.ControllerKind) BodyConfig {
	b := DefaultBody(name)
	b.OffsetX = offset
	b.Controller = DefaultController(kind)
	return b
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
