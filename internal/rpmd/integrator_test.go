package rpmd_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/cpu"
	"github.com/san-kum/ringmd/internal/compute/reference"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
	"github.com/san-kum/ringmd/internal/physics"
	"github.com/san-kum/ringmd/internal/rpmd"
)

// diatomic is two hydrogen-mass particles joined by a stiff bond.
func diatomic() *mm.System {
	sys := mm.NewSystem()
	sys.AddParticle(1.008)
	sys.AddParticle(1.008)
	bond := physics.NewHarmonicBond()
	bond.AddBond(0, 1, 0.1, 1000)
	sys.AddForce(bond)
	return sys
}

// well is n particles tethered to the origin.
func well(n int, mass, k float64) *mm.System {
	sys := mm.NewSystem()
	w := physics.NewExternalHarmonic("k", k)
	for i := 0; i < n; i++ {
		sys.AddParticle(mass)
		w.AddParticle(i, mm.Vec3{0.1 * float64(i), 0, 0})
	}
	sys.AddForce(w)
	return sys
}

func newIntegrator(numCopies int, temperature float64, seed int64) *rpmd.Integrator {
	integ, err := rpmd.New(numCopies, temperature, rpmd.DefaultFriction, rpmd.DefaultStepSize)
	Expect(err).NotTo(HaveOccurred())
	integ.SetRandomSeed(seed)
	return integ
}

func bind(sys *mm.System, integ *rpmd.Integrator, p compute.Platform) *engine.Context {
	ctx, err := engine.New(sys, integ, engine.WithPlatform(p))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(ctx.Close)
	return ctx
}

func positions(integ *rpmd.Integrator, c int) []mm.Vec3 {
	st, err := integ.State(c, engine.Positions)
	Expect(err).NotTo(HaveOccurred())
	return st.Positions()
}

func allPositions(integ *rpmd.Integrator) [][]mm.Vec3 {
	out := make([][]mm.Vec3, integ.NumCopies())
	for c := range out {
		out[c] = positions(integ, c)
	}
	return out
}

func setAll(integ *rpmd.Integrator, pos, vel []mm.Vec3) {
	for c := 0; c < integ.NumCopies(); c++ {
		Expect(integ.SetPositions(c, pos)).To(Succeed())
		Expect(integ.SetVelocities(c, vel)).To(Succeed())
	}
}

var _ = Describe("Integrator", func() {
	Describe("construction", func() {
		It("rejects fewer than one copy", func() {
			_, err := rpmd.New(0, 300, 1, 0.001)
			Expect(err).To(MatchError(mm.ErrParameterBounds))
		})

		It("rejects negative scalars", func() {
			_, err := rpmd.New(4, -1, 1, 0.001)
			Expect(err).To(MatchError(mm.ErrParameterBounds))
			_, err = rpmd.New(4, 300, -1, 0.001)
			Expect(err).To(MatchError(mm.ErrParameterBounds))
			_, err = rpmd.New(4, 300, 1, -0.001)
			Expect(err).To(MatchError(mm.ErrParameterBounds))
		})

		DescribeTable("rejects NaN and infinite scalars",
			func(temperature, friction, dt float64) {
				_, err := rpmd.New(4, temperature, friction, dt)
				Expect(err).To(MatchError(mm.ErrParameterBounds))
			},
			Entry("NaN temperature", math.NaN(), 1.0, 0.001),
			Entry("NaN friction", 300.0, math.NaN(), 0.001),
			Entry("NaN step size", 300.0, 1.0, math.NaN()),
			Entry("infinite step size", 300.0, 1.0, math.Inf(1)),
		)

		It("keeps the old value when a setter gets NaN", func() {
			integ := newIntegrator(2, 300, 1)
			Expect(integ.SetTemperature(math.NaN())).To(MatchError(mm.ErrParameterBounds))
			Expect(integ.SetFriction(math.NaN())).To(MatchError(mm.ErrParameterBounds))
			Expect(integ.SetStepSize(math.NaN())).To(MatchError(mm.ErrParameterBounds))
			Expect(integ.SetConstraintTolerance(math.NaN())).To(MatchError(mm.ErrParameterBounds))
			Expect(integ.Temperature()).To(Equal(300.0))
			Expect(integ.Friction()).To(Equal(rpmd.DefaultFriction))
			Expect(integ.StepSize()).To(Equal(rpmd.DefaultStepSize))
		})

		It("fills in defaults", func() {
			integ, err := rpmd.New(4, 300, 1, 0.001)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.ConstraintTolerance()).To(Equal(1e-4))
			Expect(integ.RandomSeed()).NotTo(BeZero())
			Expect(integ.KernelNames()).To(Equal([]string{compute.KernelIntegrateRPMDStep}))
			Expect(integ.SetTemperature(-5)).To(MatchError(mm.ErrParameterBounds))
			Expect(integ.Temperature()).To(Equal(300.0))
		})

		It("refuses per-copy access before binding", func() {
			integ := newIntegrator(2, 300, 1)
			Expect(integ.SetPositions(0, nil)).To(MatchError(mm.ErrNotBound))
			Expect(integ.Step(1)).To(MatchError(mm.ErrNotBound))
		})
	})

	Describe("binding", func() {
		It("accepts the same context twice and refuses a second one", func() {
			sys := diatomic()
			integ := newIntegrator(2, 300, 1)
			ctx := bind(sys, integ, reference.NewPlatform())

			Expect(integ.Bind(ctx)).To(Succeed())
			Expect(integ.Bind(ctx)).To(Succeed())

			_, err := engine.New(sys, integ, engine.WithPlatform(reference.NewPlatform()))
			var be *mm.AlreadyBoundError
			Expect(errors.As(err, &be)).To(BeTrue())
			Expect(be.BoundTo).To(Equal(ctx.ID()))
		})

		It("reloads every bead from the context when bound again", func() {
			integ := newIntegrator(3, 300, 1)
			ctx := bind(diatomic(), integ, reference.NewPlatform())
			st, err := ctx.State(engine.Positions)
			Expect(err).NotTo(HaveOccurred())
			start := st.Positions()

			Expect(integ.SetPositions(1, []mm.Vec3{{1, 2, 3}, {4, 5, 6}})).To(Succeed())
			Expect(integ.Bind(ctx)).To(Succeed())
			for c := 0; c < 3; c++ {
				Expect(positions(integ, c)).To(Equal(start))
			}
		})

		It("stays bound to a closed context", func() {
			sys := diatomic()
			integ := newIntegrator(2, 300, 1)
			ctx := bind(sys, integ, reference.NewPlatform())
			Expect(ctx.Close()).To(Succeed())

			Expect(integ.Step(1)).To(MatchError(mm.ErrContextClosed))
			_, err := engine.New(sys, integ, engine.WithPlatform(reference.NewPlatform()))
			Expect(err).To(MatchError(mm.ErrAlreadyBound))
		})

		It("reports a platform without the kernel", func() {
			p := compute.NewBase("forces-only", 1)
			p.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
				return reference.NewCalcForcesKernel()
			})
			_, err := engine.New(diatomic(), newIntegrator(2, 300, 1), engine.WithPlatform(p))
			var ue *mm.UnsupportedKernelError
			Expect(errors.As(err, &ue)).To(BeTrue())
			Expect(ue.Kernel).To(Equal(compute.KernelIntegrateRPMDStep))
			Expect(mm.IsFatal(err)).To(BeFalse())
		})

		It("treats a kernel of the wrong type as fatal", func() {
			p := compute.NewBase("broken", 1)
			p.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
				return reference.NewCalcForcesKernel()
			})
			p.RegisterKernelFactory(compute.KernelIntegrateRPMDStep, func(compute.ContextImpl) compute.Kernel {
				return reference.NewLangevinKernel()
			})
			_, err := engine.New(diatomic(), newIntegrator(2, 300, 1), engine.WithPlatform(p))
			Expect(err).To(MatchError(mm.ErrKernelTypeMismatch))
			Expect(mm.IsFatal(err)).To(BeTrue())
		})

		It("stays free for another platform after a failed bind", func() {
			sys := diatomic()
			integ := newIntegrator(2, 300, 1)

			forcesOnly := compute.NewBase("forces-only", 1)
			forcesOnly.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
				return reference.NewCalcForcesKernel()
			})
			_, err := engine.New(sys, integ, engine.WithPlatform(forcesOnly))
			Expect(err).To(MatchError(mm.ErrUnsupportedKernel))

			broken := compute.NewBase("broken", 1)
			broken.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
				return reference.NewCalcForcesKernel()
			})
			broken.RegisterKernelFactory(compute.KernelIntegrateRPMDStep, func(compute.ContextImpl) compute.Kernel {
				return reference.NewLangevinKernel()
			})
			_, err = engine.New(sys, integ, engine.WithPlatform(broken))
			Expect(err).To(MatchError(mm.ErrKernelTypeMismatch))

			ctx := bind(sys, integ, reference.NewPlatform())
			Expect(integ.Step(1)).To(Succeed())
			Expect(ctx.Time()).To(BeNumerically("~", rpmd.DefaultStepSize, 1e-15))
		})

		It("starts every bead from the context state", func() {
			sys := diatomic()
			integ := newIntegrator(3, 300, 1)
			ctx := bind(sys, integ, reference.NewPlatform())
			start := []mm.Vec3{{0, 0, 0}, {0.1, 0, 0}}
			Expect(ctx.SetPositions(start)).To(Succeed())
			Expect(integ.Bind(ctx)).To(Succeed())
			for c := 0; c < 3; c++ {
				Expect(positions(integ, c)).To(Equal(start))
			}
		})
	})

	Describe("per-copy access", func() {
		var (
			integ *rpmd.Integrator
			ctx   *engine.Context
			base  []mm.Vec3
		)

		BeforeEach(func() {
			integ = newIntegrator(3, 300, 1)
			ctx = bind(diatomic(), integ, reference.NewPlatform())
			base = []mm.Vec3{{0, 0, 0}, {0.1, 0, 0}}
			setAll(integ, base, make([]mm.Vec3, 2))
		})

		It("keeps copies isolated", func() {
			moved := []mm.Vec3{{1, 2, 3}, {4, 5, 6}}
			Expect(integ.SetPositions(1, moved)).To(Succeed())
			Expect(positions(integ, 0)).To(Equal(base))
			Expect(positions(integ, 2)).To(Equal(base))
			Expect(positions(integ, 1)).To(Equal(moved))
		})

		It("rejects copy indices outside the ring without mutating", func() {
			for _, c := range []int{-1, 3, 100} {
				err := integ.SetPositions(c, []mm.Vec3{{9, 9, 9}, {9, 9, 9}})
				var ce *mm.InvalidCopyIndexError
				Expect(errors.As(err, &ce)).To(BeTrue())
				Expect(ce.Copy).To(Equal(c))
				Expect(ce.NumCopies).To(Equal(3))
				Expect(integ.SetVelocities(c, make([]mm.Vec3, 2))).To(MatchError(mm.ErrInvalidCopyIndex))
				_, err = integ.State(c, engine.Positions)
				Expect(err).To(MatchError(mm.ErrInvalidCopyIndex))
			}
			Expect(allPositions(integ)).To(Equal([][]mm.Vec3{base, base, base}))
		})

		It("rejects vectors of the wrong length without mutating", func() {
			err := integ.SetPositions(0, []mm.Vec3{{9, 9, 9}})
			var pe *mm.ParticleCountMismatchError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Got).To(Equal(1))
			Expect(pe.Want).To(Equal(2))
			Expect(integ.SetVelocities(0, make([]mm.Vec3, 3))).To(MatchError(mm.ErrParticleCountMismatch))

			st, err := integ.State(0, engine.Positions|engine.Velocities)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Positions()).To(Equal(base))
			Expect(st.Velocities()).To(Equal(make([]mm.Vec3, 2)))
		})

		It("flushes the requested copy into the context", func() {
			moved := []mm.Vec3{{1, 0, 0}, {1.1, 0, 0}}
			Expect(integ.SetPositions(2, moved)).To(Succeed())
			_, err := integ.State(2, engine.Velocities)
			Expect(err).NotTo(HaveOccurred())

			st, err := ctx.State(engine.Positions)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Positions()).To(Equal(moved))

			_, err = integ.State(0, engine.Velocities)
			Expect(err).NotTo(HaveOccurred())
			st, err = ctx.State(engine.Positions)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Positions()).To(Equal(base))
		})
	})

	Describe("determinism", func() {
		run := func(p compute.Platform, seed int64) [][]mm.Vec3 {
			integ := newIntegrator(4, 300, seed)
			bind(diatomic(), integ, p)
			setAll(integ, []mm.Vec3{{0, 0, 0}, {0.1, 0, 0}}, make([]mm.Vec3, 2))
			Expect(integ.Step(10)).To(Succeed())
			return allPositions(integ)
		}

		DescribeTable("repeats a seeded trajectory bit for bit",
			func(newPlatform func() compute.Platform) {
				Expect(run(newPlatform(), 5)).To(Equal(run(newPlatform(), 5)))
				Expect(run(newPlatform(), 5)).NotTo(Equal(run(newPlatform(), 10)))
			},
			Entry("reference", func() compute.Platform { return reference.NewPlatform() }),
			Entry("cpu", func() compute.Platform { return cpu.NewPlatform() }),
		)

		It("reseeds on reinitialize", func() {
			integ := newIntegrator(4, 300, 5)
			ctx := bind(diatomic(), integ, reference.NewPlatform())
			start := []mm.Vec3{{0, 0, 0}, {0.1, 0, 0}}

			trajectory := func() [][]mm.Vec3 {
				Expect(ctx.SetPositions(start)).To(Succeed())
				Expect(ctx.SetVelocities(make([]mm.Vec3, 2))).To(Succeed())
				Expect(ctx.Reinitialize()).To(Succeed())
				Expect(integ.Step(10)).To(Succeed())
				return allPositions(integ)
			}
			first := trajectory()
			Expect(trajectory()).To(Equal(first))

			integ.SetRandomSeed(10)
			Expect(trajectory()).NotTo(Equal(first))
		})
	})

	Describe("reinitialize", func() {
		It("reloads every bead from the last flushed copy and resets time", func() {
			sys := well(2, 1, 10)
			integ := newIntegrator(3, 300, 1)
			ctx := bind(sys, integ, reference.NewPlatform())
			Expect(ctx.SetParameter("k", 50)).To(Succeed())
			for c := 0; c < 3; c++ {
				Expect(integ.SetPositions(c, []mm.Vec3{{float64(c), 0, 0}, {0, float64(c), 0}})).To(Succeed())
			}
			Expect(integ.Step(5)).To(Succeed())
			flushed := positions(integ, 2)

			Expect(ctx.Reinitialize()).To(Succeed())
			for c := 0; c < 3; c++ {
				st, err := integ.State(c, engine.Positions|engine.Parameters)
				Expect(err).NotTo(HaveOccurred())
				Expect(st.Positions()).To(Equal(flushed))
				Expect(st.Time()).To(BeZero())
				Expect(st.Parameters()).To(HaveKeyWithValue("k", 10.0))
			}
		})
	})

	Describe("parameter changes", func() {
		DescribeTable("use the new force on the next step",
			func(newPlatform func() compute.Platform) {
				sys := well(1, 1, 0)
				integ, err := rpmd.New(1, 0, 0, 0.001)
				Expect(err).NotTo(HaveOccurred())
				ctx := bind(sys, integ, newPlatform())
				Expect(integ.SetPositions(0, []mm.Vec3{{1, 0, 0}})).To(Succeed())

				Expect(integ.Step(1)).To(Succeed())
				Expect(positions(integ, 0)[0][0]).To(Equal(1.0), "no force while k is zero")

				Expect(ctx.SetParameter("k", 100)).To(Succeed())
				Expect(integ.Step(1)).To(Succeed())
				// velocity Verlet from rest: x = 1 - k/m * dt^2 / 2
				Expect(positions(integ, 0)[0][0]).To(BeNumerically("~", 0.99995, 1e-12))
			},
			Entry("reference", func() compute.Platform { return reference.NewPlatform() }),
			Entry("cpu", func() compute.Platform { return cpu.NewPlatform() }),
		)
	})

	Describe("constraints", func() {
		It("holds constrained distances in every copy", func() {
			sys := mm.NewSystem()
			sys.AddParticle(12)
			sys.AddParticle(1.008)
			sys.AddConstraint(0, 1, 0.109)
			integ := newIntegrator(4, 300, 3)
			Expect(integ.SetConstraintTolerance(1e-6)).To(Succeed())
			bind(sys, integ, reference.NewPlatform())
			setAll(integ, []mm.Vec3{{0, 0, 0}, {0.109, 0, 0}}, make([]mm.Vec3, 2))

			for i := 0; i < 20; i++ {
				Expect(integ.Step(10)).To(Succeed())
				for c := 0; c < 4; c++ {
					pos := positions(integ, c)
					Expect(pos[0].Sub(pos[1]).Norm()).To(BeNumerically("~", 0.109, 1e-5))
				}
			}
		})
	})

	Describe("thermal equilibrium", func() {
		// Each bead carries velocities drawn at numCopies*T, so the mean
		// kinetic energy per bead is 3/2 N kB numCopies T.
		DescribeTable("equipartition per bead",
			func(numCopies int) {
				const (
					n       = 16
					temp    = 300.0
					equil   = 1000
					samples = 5000
				)
				integ, err := rpmd.New(numCopies, temp, 10, 0.002)
				Expect(err).NotTo(HaveOccurred())
				integ.SetRandomSeed(12345)
				bind(well(n, 10, 100), integ, reference.NewPlatform())

				Expect(integ.Step(equil)).To(Succeed())
				sum := 0.0
				for i := 0; i < samples; i++ {
					Expect(integ.Step(1)).To(Succeed())
					for c := 0; c < numCopies; c++ {
						st, err := integ.State(c, engine.Energy)
						Expect(err).NotTo(HaveOccurred())
						sum += st.KineticEnergy()
					}
				}
				mean := sum / float64(samples*numCopies)
				want := 1.5 * n * mm.Boltzmann * float64(numCopies) * temp
				Expect(mean).To(BeNumerically("~", want, 0.1*want))
			},
			Entry("one copy", 1),
			Entry("four copies", 4),
		)
	})

	Describe("two particle ring polymer", func() {
		It("decoheres without flying apart", func() {
			integ := newIntegrator(4, 300, 2024)
			ctx := bind(diatomic(), integ, reference.NewPlatform())
			start := []mm.Vec3{{0, 0, 0}, {0.1, 0, 0}}
			setAll(integ, start, make([]mm.Vec3, 2))

			Expect(integ.Step(100)).To(Succeed())
			Expect(ctx.Time()).To(BeNumerically("~", 100*rpmd.DefaultStepSize, 1e-12))

			beads := allPositions(integ)
			for _, pos := range beads {
				Expect(mm.AllValid(pos)).To(BeTrue())
			}
			spread, pairs := 0.0, 0
			for a := 0; a < len(beads); a++ {
				for b := a + 1; b < len(beads); b++ {
					for i := range beads[a] {
						spread += beads[a][i].Sub(beads[b][i]).Norm()
						pairs++
					}
				}
			}
			spread /= float64(pairs)
			Expect(spread).To(BeNumerically(">", 0))
			Expect(spread).To(BeNumerically("<", 1))
			Expect(math.IsNaN(spread)).To(BeFalse())
		})
	})
})
