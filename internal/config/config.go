package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendulab/internal/control"
	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/sim"
)

const (
	DefaultTicks = 1200
	EnvPrefix    = "PENDULAB"
)

type Config struct {
	Dt              float64      `yaml:"dt" mapstructure:"dt"`
	Ticks           int          `yaml:"ticks" mapstructure:"ticks"`
	HistoryCapacity int          `yaml:"history_capacity" mapstructure:"history_capacity"`
	Bodies          []BodyConfig `yaml:"bodies" mapstructure:"bodies"`
}

type BodyConfig struct {
	Name       string           `yaml:"name" mapstructure:"name"`
	OffsetX    float64          `yaml:"offset_x" mapstructure:"offset_x"`
	Init       InitConfig       `yaml:"init" mapstructure:"init"`
	Params     ParamsConfig     `yaml:"params" mapstructure:"params"`
	Controller ControllerConfig `yaml:"controller" mapstructure:"controller"`
}

type InitConfig struct {
	Angle           float64 `yaml:"angle" mapstructure:"angle"`
	AngularVelocity float64 `yaml:"angular_velocity" mapstructure:"angular_velocity"`
}

type ParamsConfig struct {
	Length       float64 `yaml:"length" mapstructure:"length"`
	Friction     float64 `yaml:"friction" mapstructure:"friction"`
	ControlPower float64 `yaml:"control_power" mapstructure:"control_power"`
}

type ControllerConfig struct {
	Kind          string  `yaml:"kind" mapstructure:"kind"`
	SetPoint      float64 `yaml:"set_point" mapstructure:"set_point"`
	Kp            float64 `yaml:"kp" mapstructure:"kp"`
	Ki            float64 `yaml:"ki" mapstructure:"ki"`
	Kd            float64 `yaml:"kd" mapstructure:"kd"`
	QAngle        float64 `yaml:"q_angle" mapstructure:"q_angle"`
	QVelocity     float64 `yaml:"q_velocity" mapstructure:"q_velocity"`
	R             float64 `yaml:"r" mapstructure:"r"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:              dynamo.Dt,
		Ticks:           DefaultTicks,
		HistoryCapacity: sim.DefaultHistoryCapacity,
		Bodies:          []BodyConfig{DefaultBody("pendulum")},
	}
}

// DefaultBody is an uncontrolled pendulum in the default starting state,
// carrying default gains for whichever controller kind is later selected.
func DefaultBody(name string) BodyConfig {
	x := dynamo.DefaultState()
	p := dynamo.DefaultParams()
	return BodyConfig{
		Name: name,
		Init: InitConfig{Angle: x.Angle, AngularVelocity: x.AngularVelocity},
		Params: ParamsConfig{
			Length:       p.Length,
			Friction:     p.Friction,
			ControlPower: p.ControlPower,
		},
		Controller: DefaultController(sim.KindNone),
	}
}

func DefaultController(kind sim.ControllerKind) ControllerConfig {
	pid := control.DefaultPID()
	return ControllerConfig{
		Kind:          kind.String(),
		SetPoint:      math.Pi,
		Kp:            pid.Kp,
		Ki:            pid.Ki,
		Kd:            pid.Kd,
		QAngle:        1,
		QVelocity:     1,
		R:             1,
		Tolerance:     control.DefaultTolerance,
		MaxIterations: control.DefaultMaxIterations,
	}
}

// Load reads a scenario file. Top-level keys can be overridden from the
// environment (PENDULAB_DT, PENDULAB_TICKS, PENDULAB_HISTORY_CAPACITY). Keys
// missing from a body fall back to DefaultBody.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("dt", def.Dt)
	v.SetDefault("ticks", def.Ticks)
	v.SetDefault("history_capacity", def.HistoryCapacity)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if raw, ok := v.Get("bodies").([]any); ok {
		cfg.Bodies = make([]BodyConfig, len(raw))
		for i := range raw {
			cfg.Bodies[i] = DefaultBody(fmt.Sprintf("body%d", i))
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %g: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d: %w", c.Ticks, dynamo.ErrParameterBounds)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("history_capacity must not be negative, got %d: %w", c.HistoryCapacity, dynamo.ErrParameterBounds)
	}

	seen := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.Name == "" {
			return fmt.Errorf("body %d has no name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate body name %q", b.Name)
		}
		seen[b.Name] = true

		if err := b.params().Validate(); err != nil {
			return fmt.Errorf("body %q: %w", b.Name, err)
		}
		if !b.state().IsValid() {
			return fmt.Errorf("body %q: %w", b.Name, dynamo.ErrInvalidState)
		}
		kind, err := sim.ParseKind(b.Controller.Kind)
		if err != nil {
			return fmt.Errorf("body %q: %w", b.Name, err)
		}
		if kind == sim.KindLQR {
			cc := b.Controller
			if !(cc.R > 0) || cc.QAngle < 0 || cc.QVelocity < 0 {
				return fmt.Errorf("body %q: lqr costs need r > 0 and q >= 0: %w", b.Name, dynamo.ErrParameterBounds)
			}
			if !(cc.Tolerance > 0) || cc.MaxIterations <= 0 {
				return fmt.Errorf("body %q: lqr tolerance and max_iterations must be positive: %w", b.Name, dynamo.ErrParameterBounds)
			}
		}
	}
	return nil
}

// Build creates a world holding every configured body with its controller
// attached.
func (c *Config) Build() (*sim.World, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	w, err := sim.NewWorld(sim.Config{Dt: c.Dt, HistoryCapacity: c.HistoryCapacity})
	if err != nil {
		return nil, err
	}

	for _, bc := range c.Bodies {
		b, err := w.NewBody(bc.Name, bc.state(), bc.params())
		if err != nil {
			return nil, err
		}
		b.OffsetX = bc.OffsetX

		kind, _ := sim.ParseKind(bc.Controller.Kind)
		switch kind {
		case sim.KindPID:
			cc := bc.Controller
			b.AttachPID(control.NewPID(cc.Kp, cc.Ki, cc.Kd, cc.SetPoint))
		case sim.KindLQR:
			b.AttachLQR(bc.Controller.lqr(b.Params, c.Dt))
		}
	}
	return w, nil
}

func (b BodyConfig) state() dynamo.State {
	return dynamo.State{Angle: b.Init.Angle, AngularVelocity: b.Init.AngularVelocity}
}

func (b BodyConfig) params() dynamo.Params {
	return dynamo.Params{
		Length:       b.Params.Length,
		Friction:     b.Params.Friction,
		ControlPower: b.Params.ControlPower,
	}
}

func (c ControllerConfig) lqr(p dynamo.Params, dt float64) *control.LQR {
	l := control.NewLQR(p, c.SetPoint, dt)
	l.SetCosts(c.QAngle, c.QVelocity, c.R)
	l.Tolerance = c.Tolerance
	l.MaxIterations = c.MaxIterations
	return l
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	return &out
}
