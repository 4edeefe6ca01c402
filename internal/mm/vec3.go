package mm

import "math"

type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{v[0] * f, v[1] * f, v[2] * f} }

func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// CloneVecs returns an independent copy of vs.
func CloneVecs(vs []Vec3) []Vec3 {
	c := make([]Vec3, len(vs))
	copy(c, vs)
	return c
}

// AllValid reports whether every component of every vector is finite.
func AllValid(vs []Vec3) bool {
	for _, v := range vs {
		if !v.IsValid() {
			return false
		}
	}
	return true
}

// ZeroVecs resets every vector in vs to the origin.
func ZeroVecs(vs []Vec3) {
	for i := range vs {
		vs[i] = Vec3{}
	}
}
