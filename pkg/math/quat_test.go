package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("QuatIdentity = %v, want (0,0,0,1)", q)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	l := float32(math.Sqrt(float64(q.Dot(q))))
	if abs(l-1) > 0.001 {
		t.Errorf("normalized length = %v, want 1", l)
	}
}

func TestQuatRotate(t *testing.T) {
	q := QuatFromAxisAngle(UnitZ, float32(math.Pi/2))
	got := q.Rotate(Vec3{1, 0, 0})
	if !got.EpsilonEquals(Vec3{0, 1, 0}, 1e-5) {
		t.Errorf("Rotate = %v, want (0, 1, 0)", got)
	}
}

func TestQuatRotateMatchesMatrix(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 1, 0}.Normalize(), 0.7)
	v := Vec3{0.3, -2, 5}

	byQuat := q.Rotate(v)
	byMat := q.ToMat4().TransformVec3(v)
	if !byQuat.EpsilonEquals(byMat, 1e-4) {
		t.Errorf("quat rotate %v != matrix rotate %v", byQuat, byMat)
	}
}

func TestQuatFromMat4RoundTrip(t *testing.T) {
	tests := []Quat{
		QuatIdentity(),
		QuatFromAxisAngle(UnitX, 2.5),
		QuatFromAxisAngle(UnitY, -3.0),
		QuatFromAxisAngle(Vec3{1, 2, 3}.Normalize(), 1.1),
	}
	for _, q := range tests {
		got := QuatFromMat4(q.ToMat4())
		// q and -q encode the same rotation
		if abs(abs(got.Dot(q))-1) > 1e-4 {
			t.Errorf("QuatFromMat4(%v.ToMat4()) = %v", q, got)
		}
	}
}

func TestQuatLookAt(t *testing.T) {
	tests := []struct {
		name    string
		forward Vec3
		up      Vec3
	}{
		{"along x", Vec3{1, 0, 0}, UnitY},
		{"diagonal", Vec3{1, 1, 1}, UnitY},
		{"straight up", Vec3{0, 5, 0}, UnitY},
		{"straight down", Vec3{0, -1, 0}, UnitY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatLookAt(tt.forward, tt.up)
			got := q.Rotate(UnitZ)
			if !got.EpsilonEquals(tt.forward.Normalize(), 1e-4) {
				t.Errorf("LookAt rotates +Z to %v, want %v", got, tt.forward.Normalize())
			}
		})
	}

	if q := QuatLookAt(Vec3{}, UnitY); q != QuatIdentity() {
		t.Errorf("LookAt(zero) = %v, want identity", q)
	}
}

func TestQuatMulComposes(t *testing.T) {
	a := QuatFromAxisAngle(UnitY, 0.4)
	b := QuatFromAxisAngle(UnitY, 0.6)
	got := a.Mul(b)
	want := QuatFromAxisAngle(UnitY, 1.0)
	if !got.EpsilonEquals(want, 1e-5) {
		t.Errorf("Mul = %v, want %v", got, want)
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	a := QuatIdentity()
	b := QuatFromAxisAngle(UnitY, 1.2)
	if got := a.Slerp(b, 0); !got.EpsilonEquals(a, 1e-5) {
		t.Errorf("Slerp(0) = %v, want %v", got, a)
	}
	if got := a.Slerp(b, 1); !got.EpsilonEquals(b, 1e-5) {
		t.Errorf("Slerp(1) = %v, want %v", got, b)
	}
	if got, want := a.Slerp(b, 0.5), QuatFromAxisAngle(UnitY, 0.6); !got.EpsilonEquals(want, 1e-5) {
		t.Errorf("Slerp(0.5) = %v, want %v", got, want)
	}
}
