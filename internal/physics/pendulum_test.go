package physics

import (
	"math"
	"testing"

	"github.com/san-kum/pendulab/internal/dynamo"
)

func TestAccelerationEquilibrium(t *testing.T) {
	p := dynamo.DefaultParams()

	for _, angle := range []float64{0, math.Pi} {
		acc := Acceleration(dynamo.State{Angle: angle}, p, dynamo.Gravity)
		if math.Abs(acc) > 1e-10 {
			t.Errorf("expected zero acceleration at θ=%v, got %v", angle, acc)
		}
	}
}

func TestAccelerationGravityAndFriction(t *testing.T) {
	p := dynamo.Params{Length: 2, Friction: 0.5}
	x := dynamo.State{Angle: math.Pi / 2, AngularVelocity: 2}

	got := Acceleration(x, p, dynamo.Gravity)
	want := -dynamo.Gravity/2 - 1.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("acceleration = %v, want %v", got, want)
	}
}

func TestStepIsSemiImplicit(t *testing.T) {
	p := dynamo.Params{Length: 10, Friction: 0, ControlPower: 5}
	x := dynamo.State{Angle: math.Pi / 2, AngularVelocity: 0.1}
	dt := dynamo.Dt
	u := 0.5

	next := Step(x, p, u, dt)

	omega := x.AngularVelocity + (-dynamo.Gravity/p.Length+u*p.ControlPower)*dt
	if math.Abs(next.AngularVelocity-omega) > 1e-12 {
		t.Errorf("velocity = %v, want %v", next.AngularVelocity, omega)
	}
	// The angle must advance with the updated velocity, not the old one.
	if math.Abs(next.Angle-(x.Angle+omega*dt)) > 1e-12 {
		t.Errorf("angle = %v, want %v", next.Angle, x.Angle+omega*dt)
	}
}

func TestStepUsesControlPower(t *testing.T) {
	x := dynamo.State{Angle: math.Pi}
	off := Step(x, dynamo.Params{Length: 1, ControlPower: 0}, 1, dynamo.Dt)
	on := Step(x, dynamo.Params{Length: 1, ControlPower: 4}, 1, dynamo.Dt)

	if off.AngularVelocity == on.AngularVelocity {
		t.Error("control power should change the response to a control input")
	}
	if math.Abs(on.AngularVelocity-off.AngularVelocity-4*dynamo.Dt) > 1e-12 {
		t.Errorf("control contribution = %v, want %v", on.AngularVelocity-off.AngularVelocity, 4*dynamo.Dt)
	}
}

func TestEnergyConservedWithoutFriction(t *testing.T) {
	p := dynamo.Params{Length: 10, Friction: 0, ControlPower: 0}
	x := dynamo.State{Angle: 0.5, AngularVelocity: 0.1}
	e0 := Energy(x, p)

	maxDrift := 0.0
	for i := 0; i < 5000; i++ {
		x = Step(x, p, 0, dynamo.Dt)
		drift := math.Abs(Energy(x, p)-e0) / e0
		maxDrift = math.Max(maxDrift, drift)
	}

	if maxDrift > 0.06 {
		t.Errorf("energy drift too large for symplectic Euler: %.4f", maxDrift)
	}
}

func TestEnergyDecaysWithFriction(t *testing.T) {
	p := dynamo.Params{Length: 10, Friction: 0.1, ControlPower: 0}
	x := dynamo.State{Angle: 0.5, AngularVelocity: 0.1}

	prev := Energy(x, p)
	for window := 0; window < 10; window++ {
		for i := 0; i < 100; i++ {
			x = Step(x, p, 0, dynamo.Dt)
		}
		e := Energy(x, p)
		if e >= prev {
			t.Fatalf("window %d: energy did not decrease (%.5f -> %.5f)", window, prev, e)
		}
		prev = e
	}
}

func TestToCartesian(t *testing.T) {
	tests := []struct {
		angle float64
		x, y  float64
	}{
		{0, 0, -10},
		{math.Pi, 0, 10},
		{math.Pi / 2, 10, 0},
	}

	for _, tt := range tests {
		x, y := ToCartesian(10, tt.angle)
		if math.Abs(x-tt.x) > 1e-9 || math.Abs(y-tt.y) > 1e-9 {
			t.Errorf("ToCartesian(10, %v) = (%v, %v), want (%v, %v)", tt.angle, x, y, tt.x, tt.y)
		}
	}
}

func TestLinearize(t *testing.T) {
	p := dynamo.Params{Length: 10, Friction: 0.2, ControlPower: 5}
	dt := dynamo.Dt
	a, b := Linearize(p, dt)

	if r, c := a.Dims(); r != 2 || c != 2 {
		t.Fatalf("A dims = %dx%d, want 2x2", r, c)
	}
	if r, c := b.Dims(); r != 2 || c != 1 {
		t.Fatalf("B dims = %dx%d, want 2x1", r, c)
	}

	want := [][]float64{
		{1 + dynamo.Gravity/20*dt*dt, dt - 0.1*dt*dt},
		{dynamo.Gravity / 10 * dt, 1 - 0.2*dt},
	}
	for i := range want {
		for j := range want[i] {
			if math.Abs(a.At(i, j)-want[i][j]) > 1e-12 {
				t.Errorf("A[%d][%d] = %v, want %v", i, j, a.At(i, j), want[i][j])
			}
		}
	}
	if math.Abs(b.At(0, 0)-2.5*dt*dt) > 1e-12 || math.Abs(b.At(1, 0)-5*dt) > 1e-12 {
		t.Errorf("B = [%v %v]", b.At(0, 0), b.At(1, 0))
	}
}
