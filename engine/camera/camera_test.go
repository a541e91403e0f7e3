package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/lumen-go/common"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()

	if c.Position() != (common.Vec3{0, 1, 4}) {
		t.Fatalf("expected default position (0, 1, 4); got %v", c.Position())
	}
	if c.Target() != (common.Vec3{0, 0, 0}) {
		t.Fatalf("expected default target origin; got %v", c.Target())
	}
	if c.Up() != (common.Vec3{0, 1, 0}) {
		t.Fatalf("expected default up +Y; got %v", c.Up())
	}
	if math.Abs(float64(c.Fov()-math.Pi/3)) > 1e-6 {
		t.Fatalf("expected default fov pi/3; got %v", c.Fov())
	}
}

func TestNewCameraOptions(t *testing.T) {
	c := NewCamera(
		WithPosition(1, 2, 3),
		WithTarget(4, 5, 6),
		WithUp(0, 0, 1),
		WithFov(1.2),
	)

	if c.Position() != (common.Vec3{1, 2, 3}) {
		t.Fatalf("expected position (1, 2, 3); got %v", c.Position())
	}
	if c.Target() != (common.Vec3{4, 5, 6}) {
		t.Fatalf("expected target (4, 5, 6); got %v", c.Target())
	}
	if c.Up() != (common.Vec3{0, 0, 1}) {
		t.Fatalf("expected up (0, 0, 1); got %v", c.Up())
	}
	if c.Fov() != 1.2 {
		t.Fatalf("expected fov 1.2; got %v", c.Fov())
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	c := NewCamera()

	pos := common.Vec3{5, 5, 5}
	c.Update(Update{Position: &pos})

	if c.Position() != pos {
		t.Fatalf("expected merged position %v; got %v", pos, c.Position())
	}
	// Untouched fields keep their values.
	if c.Target() != (common.Vec3{0, 0, 0}) {
		t.Fatalf("expected target unchanged; got %v", c.Target())
	}
	if math.Abs(float64(c.Fov()-math.Pi/3)) > 1e-6 {
		t.Fatalf("expected fov unchanged; got %v", c.Fov())
	}

	fov := float32(0.9)
	c.Update(Update{Fov: &fov})
	if c.Fov() != 0.9 {
		t.Fatalf("expected merged fov 0.9; got %v", c.Fov())
	}
	if c.Position() != pos {
		t.Fatalf("expected position retained across later updates; got %v", c.Position())
	}
}

func TestUpdateEmptyIsNoOp(t *testing.T) {
	c := NewCamera(WithPosition(1, 2, 3), WithFov(1.1))

	c.Update(Update{})

	if c.Position() != (common.Vec3{1, 2, 3}) || c.Fov() != 1.1 {
		t.Fatal("expected empty update to leave all fields unchanged")
	}
}

func TestBasisIsOrthonormal(t *testing.T) {
	c := NewCamera(
		WithPosition(3, 2, 5),
		WithTarget(0, 1, 0),
		WithUp(0, 1, 0),
	)

	right, up, forward := c.Basis()

	const eps = 1e-5
	for name, v := range map[string]common.Vec3{"forward": forward, "right": right, "up": up} {
		if math.Abs(float64(v.Len()-1)) > eps {
			t.Fatalf("expected %s to be unit length; got %v", name, v.Len())
		}
	}
	if math.Abs(float64(forward.Dot(right))) > eps ||
		math.Abs(float64(forward.Dot(up))) > eps ||
		math.Abs(float64(right.Dot(up))) > eps {
		t.Fatal("expected basis vectors to be mutually orthogonal")
	}

	// Forward points from position toward target.
	want := c.Target().Sub(c.Position()).Normalize()
	if forward.Sub(want).Len() > eps {
		t.Fatalf("expected forward %v; got %v", want, forward)
	}
}
