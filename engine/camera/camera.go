package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/lumen-go/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3
	up       common.Vec3
	fov      float32
}

// Camera holds the viewpoint state read by the path tracer every frame.
// Updates are partial merges: callers set only the fields they change and the
// rest of the state is preserved.
type Camera interface {
	// Position returns the camera position in world space.
	//
	// Returns:
	//   - common.Vec3: the world-space position
	Position() common.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - common.Vec3: the world-space look-at target
	Target() common.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - common.Vec3: the up vector
	Up() common.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Update merges the non-nil fields of the given update into the camera
	// state. Fields left nil are preserved.
	//
	// Parameters:
	//   - u: the partial update to merge
	Update(u Update)

	// Basis returns the camera's orthonormal basis derived from position,
	// target and up: right, trueUp, and forward (pointing at the target).
	//
	// Returns:
	//   - right, up, forward: the orthonormal basis vectors
	Basis() (right, up, forward common.Vec3)
}

// Update is a partial camera state change. Nil fields are left untouched by
// Camera.Update.
type Update struct {
	Position *common.Vec3
	Target   *common.Vec3
	Up       *common.Vec3
	Fov      *float32
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with the default viewpoint (at (0,1,4) looking at
// the origin, +Y up, 60° vertical field of view) and applies the given options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...BuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: common.Vec3{0, 1, 4},
		target:   common.Vec3{0, 0, 0},
		up:       common.Vec3{0, 1, 0},
		fov:      float32(math.Pi / 3),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Update(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.Position != nil {
		c.position = *u.Position
	}
	if u.Target != nil {
		c.target = *u.Target
	}
	if u.Up != nil {
		c.up = *u.Up
	}
	if u.Fov != nil {
		c.fov = *u.Fov
	}
}

func (c *cameraImpl) Basis() (right, up, forward common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()

	forward = c.target.Sub(c.position).Normalize()
	right = forward.Cross(c.up).Normalize()
	up = right.Cross(forward)
	return right, up, forward
}
