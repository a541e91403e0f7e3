package loader

import (
	"math"

	"github.com/Carmen-Shannon/lumen-go/common"
)

// mat4 is a 4x4 transform in glTF's column-major element order: element (row,
// col) lives at index col*4+row.
type mat4 [16]float32

func mat4Identity() mat4 {
	return mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// mul returns a * b, so b is applied first.
func (a mat4) mul(b mat4) mat4 {
	var out mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// transformPoint applies the full affine transform to a point.
func (a mat4) transformPoint(p common.Vec3) common.Vec3 {
	return common.Vec3{
		a[0]*p[0] + a[4]*p[1] + a[8]*p[2] + a[12],
		a[1]*p[0] + a[5]*p[1] + a[9]*p[2] + a[13],
		a[2]*p[0] + a[6]*p[1] + a[10]*p[2] + a[14],
	}
}

// determinant3 returns the determinant of the upper-left 3x3 block. A
// negative value means the transform mirrors, reversing triangle winding.
func (a mat4) determinant3() float32 {
	return a[0]*(a[5]*a[10]-a[6]*a[9]) -
		a[4]*(a[1]*a[10]-a[2]*a[9]) +
		a[8]*(a[1]*a[6]-a[2]*a[5])
}

// mat3 is the 3x3 normal transform, column-major like mat4.
type mat3 [9]float32

func (m mat3) transform(v common.Vec3) common.Vec3 {
	return common.Vec3{
		m[0]*v[0] + m[3]*v[1] + m[6]*v[2],
		m[1]*v[0] + m[4]*v[1] + m[7]*v[2],
		m[2]*v[0] + m[5]*v[1] + m[8]*v[2],
	}
}

// normalMatrix returns the inverse transpose of the upper-left 3x3 block,
// which transforms normals correctly under non-uniform scale. A singular
// block falls back to the block itself.
func (a mat4) normalMatrix() mat3 {
	m := mat3{
		a[0], a[1], a[2],
		a[4], a[5], a[6],
		a[8], a[9], a[10],
	}

	det := a.determinant3()
	if det > -1e-12 && det < 1e-12 {
		return m
	}
	inv := 1 / det

	// Inverse via the adjugate, transposed in place: writing cofactor (row,
	// col) to position (row, col) of a column-major matrix is the transpose
	// of the inverse.
	return mat3{
		(m[4]*m[8] - m[5]*m[7]) * inv,
		(m[5]*m[6] - m[3]*m[8]) * inv,
		(m[3]*m[7] - m[4]*m[6]) * inv,
		(m[2]*m[7] - m[1]*m[8]) * inv,
		(m[0]*m[8] - m[2]*m[6]) * inv,
		(m[1]*m[6] - m[0]*m[7]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
		(m[0]*m[4] - m[1]*m[3]) * inv,
	}
}

// nodeLocalTransform returns a node's local transform. An explicit matrix
// wins; otherwise the translation/rotation/scale triple composes as T * R * S.
func nodeLocalTransform(node *gltfNode) mat4 {
	if node.Matrix != nil {
		return mat4(*node.Matrix)
	}

	out := mat4Identity()
	if node.Scale != nil {
		out[0] = node.Scale[0]
		out[5] = node.Scale[1]
		out[10] = node.Scale[2]
	}
	if node.Rotation != nil {
		out = quatToMat4(*node.Rotation).mul(out)
	}
	if node.Translation != nil {
		t := mat4Identity()
		t[12] = node.Translation[0]
		t[13] = node.Translation[1]
		t[14] = node.Translation[2]
		out = t.mul(out)
	}
	return out
}

// quatToMat4 converts a glTF quaternion (x, y, z, w) to a rotation matrix.
func quatToMat4(q [4]float32) mat4 {
	x, y, z, w := float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])
	n := math.Sqrt(x*x + y*y + z*z + w*w)
	if n == 0 {
		return mat4Identity()
	}
	x, y, z, w = x/n, y/n, z/n, w/n

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return mat4{
		float32(1 - 2*(yy+zz)), float32(2 * (xy + wz)), float32(2 * (xz - wy)), 0,
		float32(2 * (xy - wz)), float32(1 - 2*(xx+zz)), float32(2 * (yz + wx)), 0,
		float32(2 * (xz + wy)), float32(2 * (yz - wx)), float32(1 - 2*(xx+yy)), 0,
		0, 0, 0, 1,
	}
}
