package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/spatial/r3"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestIsValidRotation(t *testing.T) {
	tests := []struct {
		name string
		r    [9]float64
		want bool
	}{
		{"identity", IdentityRotation, true},
		{"rotation z", RotationZ(0.7), true},
		{"rotation x", RotationX(-1.2), true},
		{"scale", [9]float64{2, 0, 0, 0, 2, 0, 0, 0, 2}, false},
		{"reflection", [9]float64{-1, 0, 0, 0, 1, 0, 0, 0, 1}, false},
		{"shear", [9]float64{1, 0.5, 0, 0, 1, 0, 0, 0, 1}, false},
		{"nan", [9]float64{math.NaN(), 0, 0, 0, 1, 0, 0, 0, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidRotation(tt.r); got != tt.want {
				t.Errorf("IsValidRotation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewFrame_RejectsInvalidRotation(t *testing.T) {
	_, err := NewFrame([9]float64{2, 0, 0, 0, 2, 0, 0, 0, 2}, r3.Vec{})
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	f, err := NewFrame(RotationZ(math.Pi/3), r3.Vec{X: 100, Y: -40, Z: 7})
	if err != nil {
		t.Fatal(err)
	}
	p := r3.Vec{X: 1.5, Y: -2, Z: 0.65}

	g := f.ToGlobal(p)
	if diff := cmp.Diff(p, f.ToLocal(g), approx); diff != "" {
		t.Errorf("point round trip mismatch (-want +got):\n%s", diff)
	}

	v := r3.Unit(r3.Vec{X: 0.1, Y: 0.2, Z: -1})
	if diff := cmp.Diff(v, f.ToLocalDir(f.ToGlobalDir(v)), approx); diff != "" {
		t.Errorf("direction round trip mismatch (-want +got):\n%s", diff)
	}
	// Directions ignore the origin.
	if got := r3.Norm(f.ToGlobalDir(v)); math.Abs(got-1) > 1e-12 {
		t.Errorf("rotated unit vector has norm %g", got)
	}
}

func TestFrame_KnownRotation(t *testing.T) {
	f := Frame{R: RotationZ(math.Pi / 2), Origin: r3.Vec{X: 10}}
	got := f.ToGlobal(r3.Vec{X: 1})
	want := r3.Vec{X: 10, Y: 1}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("ToGlobal mismatch (-want +got):\n%s", diff)
	}
}

func TestFrame_RelativeTo(t *testing.T) {
	a := Frame{R: RotationZ(0.3), Origin: r3.Vec{X: 5, Y: 1, Z: 2}}
	b := Frame{R: RotationX(0.2), Origin: r3.Vec{X: -3, Y: 4, Z: 0}}
	rel := a.RelativeTo(b)

	for _, p := range []r3.Vec{{}, {X: 1}, {X: -2, Y: 3, Z: 0.5}} {
		want := b.ToLocal(a.ToGlobal(p))
		if diff := cmp.Diff(want, rel.ToGlobal(p), approx); diff != "" {
			t.Errorf("RelativeTo(%v) mismatch (-want +got):\n%s", p, diff)
		}
	}
	if !IsValidRotation(rel.R) {
		t.Error("relative rotation is not a proper rotation")
	}
}

func TestIntersectZ0(t *testing.T) {
	p := r3.Vec{X: 1, Y: 2, Z: 3}
	dir := r3.Vec{X: 0.5, Y: 0, Z: -1}

	got, ok := IntersectZ0(p, dir)
	if !ok {
		t.Fatal("expected intersection")
	}
	want := r3.Vec{X: 2.5, Y: 2, Z: 0}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("IntersectZ0 mismatch (-want +got):\n%s", diff)
	}

	// Scaling the direction does not move the intersection.
	got2, _ := IntersectZ0(p, r3.Scale(-4, dir))
	if diff := cmp.Diff(want, got2, approx); diff != "" {
		t.Errorf("IntersectZ0 with scaled direction mismatch (-want +got):\n%s", diff)
	}

	if _, ok := IntersectZ0(p, r3.Vec{X: 1}); ok {
		t.Error("expected no intersection for a line parallel to the plane")
	}
}
