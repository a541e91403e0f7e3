package geometry

import (
	"math"

	"github.com/Carmen-Shannon/lumen-go/common"
)

// Triangle is a single world-space triangle with per-vertex shading attributes.
// Triangles are immutable once a scene is uploaded; the BVH builder reorders
// them so that each leaf covers a contiguous run of the triangle slice.
type Triangle struct {
	// V0, V1, V2 are the vertex positions in world space.
	V0, V1, V2 common.Vec3
	// N0, N1, N2 are the per-vertex shading normals.
	N0, N1, N2 common.Vec3
	// UV0, UV1, UV2 are the per-vertex texture coordinates.
	UV0, UV1, UV2 common.Vec2
	// MaterialIndex references the scene's material table.
	MaterialIndex uint32
}

// Bounds returns the axis-aligned bounding box of the triangle.
func (t *Triangle) Bounds() AABB {
	b := AABB{Min: t.V0, Max: t.V0}
	b.Grow(t.V1)
	b.Grow(t.V2)
	return b
}

// Centroid returns the arithmetic mean of the three vertices. The BVH builder
// partitions triangles by centroid, not by bounds.
func (t *Triangle) Centroid() common.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Scale(1.0 / 3.0)
}

// GeometricNormal returns the unnormalized face normal (edge1 × edge2).
// Zero for degenerate (zero-area) triangles.
func (t *Triangle) GeometricNormal() common.Vec3 {
	return t.V1.Sub(t.V0).Cross(t.V2.Sub(t.V0))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min common.Vec3
	Max common.Vec3
}

// EmptyAABB returns an inverted box that unions correctly with any point.
func EmptyAABB() AABB {
	return AABB{
		Min: common.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: common.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Grow expands the box to include point p.
func (b *AABB) Grow(p common.Vec3) {
	b.Min = common.MinVec3(b.Min, p)
	b.Max = common.MaxVec3(b.Max, p)
}

// Union expands the box to include box o.
func (b *AABB) Union(o AABB) {
	b.Min = common.MinVec3(b.Min, o.Min)
	b.Max = common.MaxVec3(b.Max, o.Max)
}

// Contains reports whether o lies entirely inside b, within tolerance eps.
func (b *AABB) Contains(o AABB, eps float32) bool {
	for axis := 0; axis < 3; axis++ {
		if o.Min[axis] < b.Min[axis]-eps || o.Max[axis] > b.Max[axis]+eps {
			return false
		}
	}
	return true
}

// SurfaceArea returns the total face area of the box, the quantity the
// surface-area heuristic scores splits with.
func (b *AABB) SurfaceArea() float32 {
	side := b.Max.Sub(b.Min)
	if side[0] < 0 || side[1] < 0 || side[2] < 0 {
		return 0
	}
	return 2 * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// HitDistance tests the ray against the box with the slab method and returns
// the nearest possible entry distance, or +Inf on a miss. A ray that starts
// inside the box returns 0.
func (b *AABB) HitDistance(origin, invDir common.Vec3, tMax float32) float32 {
	tx1 := (b.Min[0] - origin[0]) * invDir[0]
	tx2 := (b.Max[0] - origin[0]) * invDir[0]
	tmin := min(tx1, tx2)
	tmax := max(tx1, tx2)

	ty1 := (b.Min[1] - origin[1]) * invDir[1]
	ty2 := (b.Max[1] - origin[1]) * invDir[1]
	tmin = max(tmin, min(ty1, ty2))
	tmax = min(tmax, max(ty1, ty2))

	tz1 := (b.Min[2] - origin[2]) * invDir[2]
	tz2 := (b.Max[2] - origin[2]) * invDir[2]
	tmin = max(tmin, min(tz1, tz2))
	tmax = min(tmax, max(tz1, tz2))

	if tmax < tmin || tmax < 0 || tmin > tMax {
		return float32(math.Inf(1))
	}
	if tmin < 0 {
		return 0
	}
	return tmin
}
