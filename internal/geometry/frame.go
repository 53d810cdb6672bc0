package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RotationTolerance is the tolerance used when checking that a rotation
// matrix is orthonormal with determinant +1.
const RotationTolerance = 1e-6

// ErrInvalidFrame is returned when a frame's rotation is not a proper rotation.
var ErrInvalidFrame = errors.New("invalid frame rotation")

// Frame is a rigid local-to-global transform: global = R·local + Origin.
// R is a 3x3 rotation stored row-major (m00,m01,m02, m10,...).
type Frame struct {
	R      [9]float64
	Origin r3.Vec
}

// IdentityRotation is the row-major 3x3 identity.
var IdentityRotation = [9]float64{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

// NewFrame builds a frame and checks that r is a proper rotation.
func NewFrame(r [9]float64, origin r3.Vec) (Frame, error) {
	if !IsValidRotation(r) {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, r)
	}
	return Frame{R: r, Origin: origin}, nil
}

// Translation returns an axis-aligned frame centred at origin.
func Translation(origin r3.Vec) Frame {
	return Frame{R: IdentityRotation, Origin: origin}
}

// RotationZ returns the rotation by phi radians about the global z axis.
func RotationZ(phi float64) [9]float64 {
	c, s := math.Cos(phi), math.Sin(phi)
	return [9]float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// RotationX returns the rotation by alpha radians about the global x axis.
func RotationX(alpha float64) [9]float64 {
	c, s := math.Cos(alpha), math.Sin(alpha)
	return [9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

// IsValidRotation reports whether r is orthonormal with determinant ≈ 1
// (a proper rotation, not a reflection or a scale).
func IsValidRotation(r [9]float64) bool {
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	det := r[0]*(r[4]*r[8]-r[5]*r[7]) - r[1]*(r[3]*r[8]-r[5]*r[6]) + r[2]*(r[3]*r[7]-r[4]*r[6])
	if math.Abs(det-1) > RotationTolerance {
		return false
	}
	// R·Rᵀ = I
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := r[3*i]*r[3*j] + r[3*i+1]*r[3*j+1] + r[3*i+2]*r[3*j+2]
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(dot-want) > RotationTolerance {
				return false
			}
		}
	}
	return true
}

// ToGlobalDir rotates a local vector into the global frame.
func (f Frame) ToGlobalDir(v r3.Vec) r3.Vec {
	r := &f.R
	return r3.Vec{
		X: r[0]*v.X + r[1]*v.Y + r[2]*v.Z,
		Y: r[3]*v.X + r[4]*v.Y + r[5]*v.Z,
		Z: r[6]*v.X + r[7]*v.Y + r[8]*v.Z,
	}
}

// ToLocalDir rotates a global vector into the local frame (Rᵀ·v).
func (f Frame) ToLocalDir(v r3.Vec) r3.Vec {
	r := &f.R
	return r3.Vec{
		X: r[0]*v.X + r[3]*v.Y + r[6]*v.Z,
		Y: r[1]*v.X + r[4]*v.Y + r[7]*v.Z,
		Z: r[2]*v.X + r[5]*v.Y + r[8]*v.Z,
	}
}

// ToGlobal maps a local point to global coordinates.
func (f Frame) ToGlobal(p r3.Vec) r3.Vec {
	return r3.Add(f.ToGlobalDir(p), f.Origin)
}

// ToLocal maps a global point to local coordinates.
func (f Frame) ToLocal(p r3.Vec) r3.Vec {
	return f.ToLocalDir(r3.Sub(p, f.Origin))
}

// RelativeTo returns the frame that maps f-local coordinates into
// to-local coordinates: to.ToLocal(f.ToGlobal(p)) == f.RelativeTo(to).ToGlobal(p).
func (f Frame) RelativeTo(to Frame) Frame {
	var r [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// (Rtoᵀ·Rf)[i][j]
			r[3*i+j] = to.R[i]*f.R[j] + to.R[3+i]*f.R[3+j] + to.R[6+i]*f.R[6+j]
		}
	}
	return Frame{R: r, Origin: to.ToLocal(f.Origin)}
}

// IntersectZ0 extrapolates the line through p with direction dir to the
// local z = 0 plane. ok is false when the line runs parallel to the plane.
func IntersectZ0(p, dir r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(dir)
	if n == 0 {
		return r3.Vec{}, false
	}
	// dir.Z = |dir|·cos(theta), theta the polar angle from local z.
	cosTheta := dir.Z / n
	if math.Abs(cosTheta) < 1e-12 {
		return r3.Vec{}, false
	}
	out := r3.Sub(p, r3.Scale(p.Z/(n*cosTheta), dir))
	out.Z = 0
	return out, true
}
