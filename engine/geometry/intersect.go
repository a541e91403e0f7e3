package geometry

import (
	"math"

	"github.com/Carmen-Shannon/lumen-go/common"
)

// Epsilon guards intersection tests against self-shadowing and near-parallel
// rays. The compute kernel uses the same value; keep the two in sync.
const Epsilon = 1e-6

// traversalStackDepth bounds the explicit node stack used during traversal.
// Matches the kernel's fixed-size stack.
const traversalStackDepth = 64

// Ray is a transient origin + direction pair. Direction is expected to be
// normalized by the caller.
type Ray struct {
	Origin    common.Vec3
	Direction common.Vec3
}

// Hit describes the closest intersection found along a ray.
type Hit struct {
	// T is the ray parameter at the hit point.
	T float32
	// Point is the world-space hit position.
	Point common.Vec3
	// Normal is the interpolated shading normal, flipped to face the
	// incoming ray.
	Normal common.Vec3
	// UV is the interpolated texture coordinate.
	UV common.Vec2
	// FrontFace reports whether the ray struck the front side of the triangle.
	FrontFace bool
	// MaterialIndex is the hit triangle's material table index.
	MaterialIndex uint32
	// TriangleIndex indexes the BVH's reordered triangle slice.
	TriangleIndex uint32
}

// IntersectTriangle runs the Möller–Trumbore test for a single triangle and
// reports the hit parameters. Hits are only accepted for t in (Epsilon, tMax).
//
// Parameters:
//   - ray: the ray to test (direction normalized)
//   - tri: the triangle to test against
//   - tMax: the current closest-hit distance; farther hits are rejected
//
// Returns:
//   - t: the ray parameter of the hit
//   - u, v: barycentric coordinates of the hit point
//   - ok: whether a valid hit was found
func IntersectTriangle(ray Ray, tri *Triangle, tMax float32) (t, u, v float32, ok bool) {
	edge1 := tri.V1.Sub(tri.V0)
	edge2 := tri.V2.Sub(tri.V0)

	h := ray.Direction.Cross(edge2)
	det := edge1.Dot(h)

	// Near-zero determinant: the ray is parallel to the triangle plane, or
	// the triangle is degenerate. Both count as a miss.
	if det > -Epsilon && det < Epsilon {
		return 0, 0, 0, false
	}

	invDet := 1 / det
	s := ray.Origin.Sub(tri.V0)
	u = invDet * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v = invDet * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = invDet * edge2.Dot(q)
	if t <= Epsilon || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// Intersect traverses the hierarchy iteratively with an explicit stack and
// returns the closest hit. This is the CPU mirror of the compute kernel's
// traversal; tests validate the two against each other structurally.
//
// Parameters:
//   - ray: the ray to trace (direction normalized)
//
// Returns:
//   - Hit: the closest intersection, valid only when found is true
//   - found: whether any triangle was hit
func (bvh *BVH) Intersect(ray Ray) (Hit, bool) {
	var hit Hit
	hit.T = float32(math.Inf(1))
	found := false

	invDir := common.Vec3{
		safeInv(ray.Direction[0]),
		safeInv(ray.Direction[1]),
		safeInv(ray.Direction[2]),
	}

	var stack [traversalStackDepth]uint32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		node := &bvh.Nodes[stack[sp]]

		bounds := node.Bounds()
		if bounds.HitDistance(ray.Origin, invDir, hit.T) >= hit.T {
			continue
		}

		if node.IsLeaf() {
			for i := node.LeftFirst; i < node.LeftFirst+node.TriCount; i++ {
				tri := &bvh.Triangles[i]
				t, u, v, ok := IntersectTriangle(ray, tri, hit.T)
				if !ok {
					continue
				}
				found = true
				hit.T = t
				hit.TriangleIndex = i
				hit.MaterialIndex = tri.MaterialIndex
				hit.Point = ray.Origin.Add(ray.Direction.Scale(t))

				w := 1 - u - v
				hit.Normal = tri.N0.Scale(w).Add(tri.N1.Scale(u)).Add(tri.N2.Scale(v)).Normalize()
				hit.UV = common.Vec2{
					w*tri.UV0[0] + u*tri.UV1[0] + v*tri.UV2[0],
					w*tri.UV0[1] + u*tri.UV1[1] + v*tri.UV2[1],
				}

				hit.FrontFace = ray.Direction.Dot(hit.Normal) < 0
				if !hit.FrontFace {
					hit.Normal = hit.Normal.Scale(-1)
				}
			}
			continue
		}

		if sp+2 <= traversalStackDepth {
			stack[sp] = node.LeftFirst
			stack[sp+1] = node.LeftFirst + 1
			sp += 2
		}
	}

	return hit, found
}

func safeInv(x float32) float32 {
	if x == 0 {
		return float32(math.Inf(1))
	}
	return 1 / x
}
