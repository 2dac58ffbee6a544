package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendulab/internal/control"
	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/physics"
	"github.com/san-kum/pendulab/internal/sim"
)

func newWorld() *sim.World {
	w, err := sim.NewWorld(sim.DefaultConfig())
	Expect(err).NotTo(HaveOccurred())
	return w
}

var _ = Describe("World", func() {
	var (
		ctx context.Context
		w   *sim.World
	)

	BeforeEach(func() {
		ctx = context.Background()
		w = newWorld()
	})

	Describe("PID stabilization", func() {
		var b *sim.Body

		BeforeEach(func() {
			var err error
			b, err = w.NewBody("pid", dynamo.State{Angle: math.Pi + 0.5, AngularVelocity: 0.1}, dynamo.DefaultParams())
			Expect(err).NotTo(HaveOccurred())
			b.AttachPID(control.NewPID(-8, -5.5, -4, math.Pi))
		})

		It("reaches the set point within 500 ticks and stays there", func() {
			reached := -1
			for i := 0; i < 500 && reached < 0; i++ {
				w.Step()
				if math.Abs(b.State.Angle-math.Pi) < 0.05 {
					reached = w.Tick()
				}
			}
			Expect(reached).To(BeNumerically(">", 0))

			for i := 0; i < 2000; i++ {
				w.Step()
				Expect(math.Abs(b.State.Angle - math.Pi)).To(BeNumerically("<", 0.1))
			}
		})

		It("latches the integral monotonically", func() {
			latched := false
			for i := 0; i < 300; i++ {
				w.Step()
				if latched {
					Expect(b.PID().IntegralEnabled()).To(BeTrue())
				}
				latched = b.PID().IntegralEnabled()
			}
			Expect(latched).To(BeTrue())
		})

		It("records control, error and accumulator every tick", func() {
			Expect(w.Run(ctx, 40)).To(Succeed())

			h := b.History()
			Expect(h.Control.Len()).To(Equal(40))
			Expect(h.Error.Len()).To(Equal(40))
			Expect(h.Accumulator.Len()).To(Equal(40))

			last, _ := h.Error.Last()
			// recorded as set point − angle, so a start above the target is negative
			Expect(h.Error.At(0)).To(BeNumerically("~", -0.5, 1e-12))
			Expect(math.Abs(last)).To(BeNumerically("<", 0.5))

			pts := h.Control.Points(w.Dt())
			Expect(pts[10][0]).To(BeNumerically("~", 10*dynamo.Dt, 1e-12))
		})

		It("keeps the accumulator inside the control headroom", func() {
			for i := 0; i < 600; i++ {
				pre := b.State
				w.Step()
				acc, _ := b.History().Accumulator.Last()
				pd := (pre.Angle-math.Pi)*b.PID().Kp + pre.AngularVelocity*b.PID().Kd
				lo, hi := control.Headroom(pd)
				Expect(acc).To(BeNumerically(">=", lo-1e-12))
				Expect(acc).To(BeNumerically("<=", hi+1e-12))
			}
		})
	})

	Describe("LQR stabilization", func() {
		It("drives a small perturbation back upright without saturating", func() {
			b, err := w.NewBody("lqr", dynamo.State{Angle: math.Pi, AngularVelocity: 0.1}, dynamo.DefaultParams())
			Expect(err).NotTo(HaveOccurred())
			b.AttachLQR(control.NewLQR(b.Params, math.Pi, dynamo.Dt))

			saturated := 0
			for i := 0; i < 400; i++ {
				w.Step()
				if math.Abs(b.Control()) >= dynamo.MaxControl {
					saturated++
				}
			}

			Expect(saturated).To(BeZero())
			Expect(b.Failures()).To(BeZero())
			Expect(math.Abs(b.State.Angle - math.Pi)).To(BeNumerically("<", 1e-3))
			Expect(math.Abs(b.State.AngularVelocity)).To(BeNumerically("<", 1e-3))
		})

		It("does not record error or accumulator history", func() {
			b, _ := w.NewBody("lqr", dynamo.State{Angle: math.Pi}, dynamo.DefaultParams())
			b.AttachLQR(control.DefaultLQR())
			w.Step()

			Expect(b.History().Error).To(BeNil())
			Expect(b.History().Series()).To(HaveLen(1))
		})
	})

	Describe("saturation", func() {
		It("never applies a control outside [-1, 1]", func() {
			wild := control.NewPID(-400, -90, -70, math.Pi)
			a, _ := w.NewBody("wild-pid", dynamo.State{Angle: 0.3, AngularVelocity: 4}, dynamo.DefaultParams())
			a.AttachPID(wild)
			l, _ := w.NewBody("wild-lqr", dynamo.State{Angle: 1, AngularVelocity: -3}, dynamo.DefaultParams())
			lqr := control.DefaultLQR()
			lqr.SetCosts(1e4, 1e3, 1e-3)
			l.AttachLQR(lqr)
			m, _ := w.NewBody("manual", dynamo.DefaultState(), dynamo.DefaultParams())
			m.SetManualControl(12)

			for i := 0; i < 300; i++ {
				w.Step()
				for _, b := range w.Bodies() {
					Expect(math.Abs(b.Control())).To(BeNumerically("<=", dynamo.MaxControl))
				}
			}
			Expect(m.Control()).To(Equal(1.0))
		})
	})

	Describe("order within a tick", func() {
		It("computes control from the pre-tick state", func() {
			b, _ := w.NewBody("pid", dynamo.State{Angle: math.Pi + 0.1}, dynamo.DefaultParams())
			b.AttachPID(control.NewPID(-2, 0, 0, math.Pi))
			pre := b.State

			w.Step()

			Expect(b.Control()).To(BeNumerically("~", -0.2, 1e-12))
			Expect(b.State).To(Equal(physics.Step(pre, b.Params, b.Control(), dynamo.Dt)))
		})
	})

	Describe("failure isolation", func() {
		It("holds the previous control on a failing body and leaves others alone", func() {
			good, _ := w.NewBody("good", dynamo.State{Angle: math.Pi, AngularVelocity: 0.1}, dynamo.DefaultParams())
			good.AttachLQR(control.DefaultLQR())
			bad, _ := w.NewBody("bad", dynamo.State{Angle: math.Pi, AngularVelocity: 0.1}, dynamo.DefaultParams())
			bad.AttachLQR(control.DefaultLQR())

			twin := newWorld()
			ref, _ := twin.NewBody("good", good.State, good.Params)
			ref.AttachLQR(control.DefaultLQR())

			Expect(w.Run(ctx, 5)).To(Succeed())
			Expect(twin.Run(ctx, 5)).To(Succeed())
			held := bad.Control()

			bad.LQR().MaxIterations = 1
			bad.LQR().Tolerance = 1e-15
			Expect(w.Run(ctx, 3)).To(Succeed())
			Expect(twin.Run(ctx, 3)).To(Succeed())

			Expect(bad.Failures()).To(Equal(3))
			Expect(bad.Control()).To(Equal(held))
			Expect(errors.Is(bad.LastError(), dynamo.ErrDidNotConverge)).To(BeTrue())

			var simErr *dynamo.SimulationError
			Expect(errors.As(bad.LastError(), &simErr)).To(BeTrue())
			Expect(simErr.Tick).To(Equal(7))
			Expect(simErr.Body).To(Equal("bad"))

			Expect(good.Failures()).To(BeZero())
			Expect(good.State).To(Equal(ref.State))
		})
	})

	Describe("reset", func() {
		It("is idempotent", func() {
			b, _ := w.NewBody("pid", dynamo.DefaultState(), dynamo.DefaultParams())
			b.AttachPID(control.DefaultPID())
			Expect(w.Run(ctx, 120)).To(Succeed())

			w.Reset()
			once := *b.PID()
			stateOnce := b.State

			w.Reset()

			Expect(*b.PID()).To(Equal(once))
			Expect(b.State).To(Equal(stateOnce))
			Expect(b.State).To(Equal(dynamo.DefaultState()))
			Expect(b.History().Control.Len()).To(BeZero())
			Expect(b.History().Error.Len()).To(BeZero())
			Expect(b.PID().IntegralEnabled()).To(BeFalse())
			Expect(w.Tick()).To(BeZero())
		})
	})

	Describe("configuration", func() {
		It("rejects duplicate names and invalid params", func() {
			_, err := w.NewBody("a", dynamo.DefaultState(), dynamo.DefaultParams())
			Expect(err).NotTo(HaveOccurred())
			_, err = w.NewBody("a", dynamo.DefaultState(), dynamo.DefaultParams())
			Expect(err).To(HaveOccurred())
			_, err = w.NewBody("b", dynamo.DefaultState(), dynamo.Params{Length: 0})
			Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
		})

		It("rejects a non-positive dt", func() {
			_, err := sim.NewWorld(sim.Config{Dt: 0})
			Expect(err).To(HaveOccurred())
		})

		It("stops on a cancelled context", func() {
			b, _ := w.NewBody("free", dynamo.DefaultState(), dynamo.DefaultParams())
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			Expect(w.Run(cctx, 10)).To(MatchError(context.Canceled))
			Expect(b.History().Control.Len()).To(BeZero())
		})
	})

	Describe("RunAll", func() {
		It("runs independent worlds to the same result as running them alone", func() {
			worlds := make([]*sim.World, 4)
			for i := range worlds {
				worlds[i] = newWorld()
				b, _ := worlds[i].NewBody("pid", dynamo.DefaultState(), dynamo.DefaultParams())
				b.AttachPID(control.DefaultPID())
			}
			alone := newWorld()
			ref, _ := alone.NewBody("pid", dynamo.DefaultState(), dynamo.DefaultParams())
			ref.AttachPID(control.DefaultPID())

			Expect(sim.RunAll(ctx, worlds, 200)).To(Succeed())
			Expect(alone.Run(ctx, 200)).To(Succeed())

			for _, wd := range worlds {
				Expect(wd.Bodies()[0].State).To(Equal(ref.State))
			}
		})
	})
})
