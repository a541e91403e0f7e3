package geometry

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/lumen-go/common"
)

func unitTriangle() Triangle {
	return Triangle{
		V0:  common.Vec3{0, 0, 0},
		V1:  common.Vec3{1, 0, 0},
		V2:  common.Vec3{0, 1, 0},
		N0:  common.Vec3{0, 0, 1},
		N1:  common.Vec3{0, 0, 1},
		N2:  common.Vec3{0, 0, 1},
		UV0: common.Vec2{0, 0},
		UV1: common.Vec2{1, 0},
		UV2: common.Vec2{0, 1},
	}
}

func TestIntersectTriangle(t *testing.T) {
	tri := unitTriangle()

	tests := []struct {
		name   string
		ray    Ray
		wantT  float32
		wantOK bool
	}{
		{
			name:   "center hit",
			ray:    Ray{Origin: common.Vec3{0.2, 0.2, -1}, Direction: common.Vec3{0, 0, 1}},
			wantT:  1,
			wantOK: true,
		},
		{
			name:   "miss outside edge",
			ray:    Ray{Origin: common.Vec3{0.8, 0.8, -1}, Direction: common.Vec3{0, 0, 1}},
			wantOK: false,
		},
		{
			name:   "parallel ray",
			ray:    Ray{Origin: common.Vec3{0.2, 0.2, -1}, Direction: common.Vec3{1, 0, 0}},
			wantOK: false,
		},
		{
			name:   "behind origin",
			ray:    Ray{Origin: common.Vec3{0.2, 0.2, 1}, Direction: common.Vec3{0, 0, 1}},
			wantOK: false,
		},
		{
			name:   "back face still hits",
			ray:    Ray{Origin: common.Vec3{0.2, 0.2, 1}, Direction: common.Vec3{0, 0, -1}},
			wantT:  1,
			wantOK: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hitT, u, v, ok := IntersectTriangle(tc.ray, &tri, float32(math.Inf(1)))
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v; got %v", tc.wantOK, ok)
			}
			if !ok {
				return
			}
			if math.Abs(float64(hitT-tc.wantT)) > 1e-5 {
				t.Fatalf("expected t=%v; got %v", tc.wantT, hitT)
			}
			if u < 0 || v < 0 || u+v > 1 {
				t.Fatalf("barycentrics out of range: u=%v v=%v", u, v)
			}
		})
	}
}

func TestIntersectTriangleRespectsTMax(t *testing.T) {
	tri := unitTriangle()
	ray := Ray{Origin: common.Vec3{0.2, 0.2, -1}, Direction: common.Vec3{0, 0, 1}}

	if _, _, _, ok := IntersectTriangle(ray, &tri, 0.5); ok {
		t.Fatal("expected no hit when tMax is closer than the triangle")
	}
	if _, _, _, ok := IntersectTriangle(ray, &tri, 1.5); !ok {
		t.Fatal("expected hit when tMax is beyond the triangle")
	}
}

func TestIntersectTriangleDegenerate(t *testing.T) {
	degenerate := Triangle{
		V0: common.Vec3{0, 0, 0},
		V1: common.Vec3{1, 0, 0},
		V2: common.Vec3{2, 0, 0},
	}
	ray := Ray{Origin: common.Vec3{0.5, 0, -1}, Direction: common.Vec3{0, 0, 1}}

	if _, _, _, ok := IntersectTriangle(ray, &degenerate, float32(math.Inf(1))); ok {
		t.Fatal("expected no hit against a zero-area triangle")
	}
}

func TestBVHIntersectClosestHit(t *testing.T) {
	// Two parallel triangles along +Z; the nearer one must win regardless of
	// leaf ordering.
	near := unitTriangle()
	far := unitTriangle()
	far.V0[2], far.V1[2], far.V2[2] = 2, 2, 2
	far.MaterialIndex = 1

	bvh := BuildBVH([]Triangle{far, near})
	ray := Ray{Origin: common.Vec3{0.2, 0.2, -1}, Direction: common.Vec3{0, 0, 1}}

	hit, ok := bvh.Intersect(ray)
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(float64(hit.T-1)) > 1e-5 {
		t.Fatalf("expected closest hit at t=1; got %v", hit.T)
	}
	if hit.MaterialIndex != 0 {
		t.Fatalf("expected the near triangle's material 0; got %d", hit.MaterialIndex)
	}
}

func TestBVHIntersectNormalFacesRay(t *testing.T) {
	tri := unitTriangle()
	bvh := BuildBVH([]Triangle{tri})

	front := Ray{Origin: common.Vec3{0.2, 0.2, -1}, Direction: common.Vec3{0, 0, 1}}
	hit, ok := bvh.Intersect(front)
	if !ok {
		t.Fatal("expected front hit")
	}
	if hit.Normal.Dot(front.Direction) >= 0 {
		t.Fatal("expected normal to face the incoming ray")
	}
	if hit.FrontFace {
		// Stored normals point +Z and the ray travels +Z, so this is a back
		// face hit by the shading normal convention.
		t.Fatal("expected back face classification for a ray along the stored normal")
	}

	back := Ray{Origin: common.Vec3{0.2, 0.2, 1}, Direction: common.Vec3{0, 0, -1}}
	hit, ok = bvh.Intersect(back)
	if !ok {
		t.Fatal("expected back-side hit")
	}
	if hit.Normal.Dot(back.Direction) >= 0 {
		t.Fatal("expected flipped normal to face the incoming ray")
	}
	if !hit.FrontFace {
		t.Fatal("expected front face classification for a ray against the stored normal")
	}
}

func TestBVHIntersectMiss(t *testing.T) {
	tris := randomTriangles(100, 31)
	bvh := BuildBVH(tris)

	ray := Ray{Origin: common.Vec3{100, 100, 100}, Direction: common.Vec3{0, 1, 0}}
	if _, ok := bvh.Intersect(ray); ok {
		t.Fatal("expected miss for a ray leaving the scene")
	}
}

func TestBVHIntersectMatchesBruteForce(t *testing.T) {
	tris := randomTriangles(400, 41)
	bvh := BuildBVH(tris)

	rays := []Ray{
		{Origin: common.Vec3{0, 0, -20}, Direction: common.Vec3{0, 0, 1}},
		{Origin: common.Vec3{-20, 1, 0}, Direction: common.Vec3{1, 0, 0}},
		{Origin: common.Vec3{3, 15, 2}, Direction: common.Vec3{0, -1, 0}},
		{Origin: common.Vec3{-8, -8, -8}, Direction: common.Vec3{1, 1, 1}.Normalize()},
	}

	for i, ray := range rays {
		bestT := float32(math.Inf(1))
		found := false
		for j := range bvh.Triangles {
			if hitT, _, _, ok := IntersectTriangle(ray, &bvh.Triangles[j], bestT); ok {
				bestT = hitT
				found = true
			}
		}

		hit, ok := bvh.Intersect(ray)
		if ok != found {
			t.Fatalf("ray %d: traversal found=%v but brute force found=%v", i, ok, found)
		}
		if ok && math.Abs(float64(hit.T-bestT)) > 1e-4 {
			t.Fatalf("ray %d: expected t=%v; got %v", i, bestT, hit.T)
		}
	}
}

func TestBVHIntersectUVInterpolation(t *testing.T) {
	tri := unitTriangle()
	bvh := BuildBVH([]Triangle{tri})

	// At (0.25, 0.25) barycentrics are u=0.25 (toward V1), v=0.25 (toward V2).
	ray := Ray{Origin: common.Vec3{0.25, 0.25, -1}, Direction: common.Vec3{0, 0, 1}}
	hit, ok := bvh.Intersect(ray)
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(float64(hit.UV[0]-0.25)) > 1e-5 || math.Abs(float64(hit.UV[1]-0.25)) > 1e-5 {
		t.Fatalf("expected uv (0.25, 0.25); got (%v, %v)", hit.UV[0], hit.UV[1])
	}
}

func TestAABBHitDistance(t *testing.T) {
	box := AABB{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}}

	origin := common.Vec3{0, 0, -5}
	dir := common.Vec3{0, 0, 1}
	invDir := common.Vec3{safeInv(dir[0]), safeInv(dir[1]), safeInv(dir[2])}

	d := box.HitDistance(origin, invDir, float32(math.Inf(1)))
	if math.Abs(float64(d-4)) > 1e-5 {
		t.Fatalf("expected entry distance 4; got %v", d)
	}

	// Inside the box the distance clamps to zero.
	inside := common.Vec3{0, 0, 0}
	if d := box.HitDistance(inside, invDir, float32(math.Inf(1))); d != 0 {
		t.Fatalf("expected distance 0 from inside; got %v", d)
	}

	// Behind the ray.
	behind := common.Vec3{0, 0, 5}
	if d := box.HitDistance(behind, invDir, float32(math.Inf(1))); !math.IsInf(float64(d), 1) {
		t.Fatalf("expected +Inf for a box behind the ray; got %v", d)
	}
}
