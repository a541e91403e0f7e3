package camera

import "github.com/Carmen-Shannon/lumen-go/common"

// BuilderOption is a function that configures a camera instance during construction.
type BuilderOption func(*cameraImpl)

// WithPosition is an option builder that sets the camera position.
//
// Parameters:
//   - x, y, z: the world-space position components
//
// Returns:
//   - BuilderOption: a function that applies the position to a camera
func WithPosition(x, y, z float32) BuilderOption {
	return func(c *cameraImpl) {
		c.position = common.Vec3{x, y, z}
	}
}

// WithTarget is an option builder that sets the look-at target.
//
// Parameters:
//   - x, y, z: the world-space target components
//
// Returns:
//   - BuilderOption: a function that applies the target to a camera
func WithTarget(x, y, z float32) BuilderOption {
	return func(c *cameraImpl) {
		c.target = common.Vec3{x, y, z}
	}
}

// WithUp is an option builder that sets the up vector.
//
// Parameters:
//   - x, y, z: the up vector components
//
// Returns:
//   - BuilderOption: a function that applies the up vector to a camera
func WithUp(x, y, z float32) BuilderOption {
	return func(c *cameraImpl) {
		c.up = common.Vec3{x, y, z}
	}
}

// WithFov is an option builder that sets the vertical field of view.
//
// Parameters:
//   - radians: the vertical field of view in radians
//
// Returns:
//   - BuilderOption: a function that applies the field of view to a camera
func WithFov(radians float32) BuilderOption {
	return func(c *cameraImpl) {
		c.fov = radians
	}
}
