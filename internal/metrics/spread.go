package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ringmd/internal/mm"
)

// BeadSpread is the mean distance of a bead from its ring's centroid, in nm.
// It is zero for a classical run and grows with delocalization.
type BeadSpread struct {
	history []float64
}

func NewBeadSpread() *BeadSpread { return &BeadSpread{} }

func (b *BeadSpread) Name() string { return "bead_spread" }

func (b *BeadSpread) Observe(s Sample) {
	n := s.NumCopies()
	if n == 0 {
		return
	}
	var dists []float64
	for i := range s.Positions[0] {
		var centroid mm.Vec3
		for c := 0; c < n; c++ {
			centroid = centroid.Add(s.Positions[c][i])
		}
		centroid = centroid.Scale(1 / float64(n))
		for c := 0; c < n; c++ {
			dists = append(dists, s.Positions[c][i].Sub(centroid).Norm())
		}
	}
	if len(dists) == 0 {
		return
	}
	b.history = append(b.history, stat.Mean(dists, nil))
}

func (b *BeadSpread) Value() float64 {
	if len(b.history) == 0 {
		return 0
	}
	return stat.Mean(b.history, nil)
}

func (b *BeadSpread) Reset() { b.history = b.history[:0] }
