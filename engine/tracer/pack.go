package tracer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/lumen-go/engine/geometry"
	"github.com/Carmen-Shannon/lumen-go/engine/material"
)

var (
	// ErrEmptyScene indicates SetScene was called with no triangles.
	ErrEmptyScene = errors.New("scene contains no triangles")

	// ErrNoMaterials indicates SetScene was called with no materials while
	// triangles reference material indices.
	ErrNoMaterials = errors.New("scene contains no materials")

	// ErrMaterialOutOfRange indicates a triangle references a material index
	// beyond the provided material table.
	ErrMaterialOutOfRange = errors.New("triangle references material index out of range")
)

// PackedScene holds the flat GPU-ready buffers produced from a built BVH and
// its material table. Lane order and stride are a wire contract with the
// compute kernel, which indexes these buffers by fixed offsets.
type PackedScene struct {
	// Triangles is the packed triangle buffer, geometry.GPUTriangleSize bytes per element,
	// in BVH leaf order.
	Triangles []byte

	// Nodes is the packed BVH node buffer, geometry.GPUBVHNodeSize bytes per element,
	// root at element 0.
	Nodes []byte

	// Materials is the packed material buffer, material.GPUMaterialSize bytes per element.
	Materials []byte

	// TriCount is the number of triangles in the packed buffer.
	TriCount uint32
}

// PackScene converts a built BVH and its material table into flat GPU buffers.
// The BVH's triangle array is used directly since construction reorders
// triangles into leaf-contiguous ranges indexed by the nodes.
//
// Parameters:
//   - bvh: the built BVH whose triangles and nodes will be packed
//   - materials: the material table referenced by triangle material indices
//
// Returns:
//   - *PackedScene: the packed buffers, or nil on error
//   - error: ErrEmptyScene, ErrNoMaterials, or ErrMaterialOutOfRange wrapped with the offending index
func PackScene(bvh *geometry.BVH, materials []material.Material) (*PackedScene, error) {
	if bvh == nil || len(bvh.Triangles) == 0 {
		return nil, ErrEmptyScene
	}
	if len(materials) == 0 {
		return nil, ErrNoMaterials
	}

	for i := range bvh.Triangles {
		if int(bvh.Triangles[i].MaterialIndex) >= len(materials) {
			return nil, fmt.Errorf("triangle %d references material %d of %d: %w", i, bvh.Triangles[i].MaterialIndex, len(materials), ErrMaterialOutOfRange)
		}
	}

	packed := &PackedScene{
		Triangles: make([]byte, 0, len(bvh.Triangles)*geometry.GPUTriangleSize),
		Nodes:     make([]byte, 0, len(bvh.Nodes)*geometry.GPUBVHNodeSize),
		Materials: make([]byte, 0, len(materials)*material.GPUMaterialSize),
		TriCount:  uint32(len(bvh.Triangles)),
	}

	for i := range bvh.Triangles {
		gt := geometry.NewGPUTriangle(&bvh.Triangles[i])
		packed.Triangles = append(packed.Triangles, gt.Marshal()...)
	}
	for i := range bvh.Nodes {
		gn := geometry.NewGPUBVHNode(&bvh.Nodes[i])
		packed.Nodes = append(packed.Nodes, gn.Marshal()...)
	}
	for i := range materials {
		gm := material.NewGPUMaterial(&materials[i])
		packed.Materials = append(packed.Materials, gm.Marshal()...)
	}

	return packed, nil
}
