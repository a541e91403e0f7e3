package loader

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/Carmen-Shannon/lumen-go/common"
	"github.com/Carmen-Shannon/lumen-go/engine/geometry"
	"github.com/Carmen-Shannon/lumen-go/engine/material"
	"github.com/Carmen-Shannon/lumen-go/log"
)

// Mesh is the result of importing a model file: a world-space triangle soup
// and the material table its triangles reference. The node hierarchy is baked
// into the vertex positions during import, so a Mesh feeds the tracer's scene
// upload directly.
type Mesh struct {
	// Name is the cache key the mesh was imported under.
	Name string

	// Triangles are the imported triangles in world space.
	Triangles []geometry.Triangle

	// Materials is the material table referenced by triangle material indices.
	Materials []material.Material
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	logger log.Logger

	// defaultMaterial fills in for primitives that reference no material.
	defaultMaterial material.Material

	cache map[string]*Mesh
}

// Loader imports glTF/GLB model files as tracer-ready triangle meshes and
// caches the results by name. Node transforms are baked into world space,
// missing normals are generated from the geometry, and glTF PBR factors plus
// the KHR transmission, ior, emissive strength and clearcoat extensions map
// onto the tracer's material model.
type Loader interface {
	// Load imports a model file and caches the result by file path. If the
	// mesh is already cached, the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the .gltf or .glb file
	//
	// Returns:
	//   - *Mesh: the imported mesh
	//   - error: error if loading fails
	Load(path string) (*Mesh, error)

	// LoadReader imports a model from a reader stream and caches it under the
	// given name. External buffer URIs cannot be resolved in this mode.
	//
	// Parameters:
	//   - name: the cache key for the imported mesh
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - *Mesh: the imported mesh
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (*Mesh, error)

	// Get retrieves a cached mesh by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Mesh: the cached mesh or nil
	Get(name string) *Mesh
}

var _ Loader = &loader{}

// NewLoader creates a Loader with the specified options applied.
//
// Parameters:
//   - opts: functional options to configure the loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(opts ...LoaderBuilderOption) Loader {
	l := &loader{
		logger:          log.New("loader"),
		defaultMaterial: material.New(),
		cache:           make(map[string]*Mesh),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *loader) Load(path string) (*Mesh, error) {
	l.mu.RLock()
	if cached, ok := l.cache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}

	mesh, err := l.importDocument(parser, path)
	if err != nil {
		return nil, fmt.Errorf("failed to import %q: %w", path, err)
	}

	l.mu.Lock()
	l.cache[path] = mesh
	l.mu.Unlock()

	l.logger.Debugf("imported %q: %d triangles, %d materials", path, len(mesh.Triangles), len(mesh.Materials))
	return mesh, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Mesh, error) {
	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", name, err)
	}

	mesh, err := l.importDocument(parser, name)
	if err != nil {
		return nil, fmt.Errorf("failed to import %q: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = mesh
	l.mu.Unlock()

	return mesh, nil
}

func (l *loader) Get(name string) *Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

// importDocument flattens the document's node hierarchy into a world-space
// triangle soup and converts the material table.
func (l *loader) importDocument(parser gltfParser, name string) (*Mesh, error) {
	doc := parser.Document()

	mesh := &Mesh{Name: name}
	for i := range doc.Materials {
		mesh.Materials = append(mesh.Materials, convertMaterial(&doc.Materials[i]))
	}

	// Slot for primitives that reference no material, appended lazily so
	// files with fully assigned materials carry no extra table entry.
	defaultIndex := -1
	assignMaterial := func(prim *gltfPrimitive) uint32 {
		if prim.Material != nil && *prim.Material < len(mesh.Materials) {
			return uint32(*prim.Material)
		}
		if defaultIndex < 0 {
			defaultIndex = len(mesh.Materials)
			mesh.Materials = append(mesh.Materials, l.defaultMaterial)
		}
		return uint32(defaultIndex)
	}

	emit := func(nodeIndex int, world mat4) error {
		node := &doc.Nodes[nodeIndex]
		if node.Mesh == nil {
			return nil
		}
		if *node.Mesh < 0 || *node.Mesh >= len(doc.Meshes) {
			return fmt.Errorf("node %d references mesh %d out of range", nodeIndex, *node.Mesh)
		}
		gm := &doc.Meshes[*node.Mesh]
		for primIdx := range gm.Primitives {
			prim := &gm.Primitives[primIdx]
			tris, err := extractPrimitive(parser, prim, world, assignMaterial(prim))
			if err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", *node.Mesh, primIdx, err)
			}
			mesh.Triangles = append(mesh.Triangles, tris...)
		}
		return nil
	}

	var walk func(nodeIndex int, parent mat4) error
	walk = func(nodeIndex int, parent mat4) error {
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", nodeIndex)
		}
		world := parent.mul(nodeLocalTransform(&doc.Nodes[nodeIndex]))
		if err := emit(nodeIndex, world); err != nil {
			return err
		}
		for _, child := range doc.Nodes[nodeIndex].Children {
			if err := walk(child, world); err != nil {
				return err
			}
		}
		return nil
	}

	roots := sceneRoots(doc)
	for _, root := range roots {
		if err := walk(root, mat4Identity()); err != nil {
			return nil, err
		}
	}

	if len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("document contains no triangle geometry")
	}
	return mesh, nil
}

// sceneRoots returns the root node indices of the default scene. Documents
// without a scenes array fall back to treating every node as a root of its
// own subtree; child nodes are skipped since their parents reach them.
func sceneRoots(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		sceneIndex := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			sceneIndex = *doc.Scene
		}
		return doc.Scenes[sceneIndex].Nodes
	}

	isChild := make(map[int]bool)
	for i := range doc.Nodes {
		for _, c := range doc.Nodes[i].Children {
			isChild[c] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// extractPrimitive converts one glTF primitive into world-space triangles.
func extractPrimitive(parser gltfParser, prim *gltfPrimitive, world mat4, materialIndex uint32) ([]geometry.Triangle, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := parser.ReadVec3Accessor(posAccessor)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}
	vertexCount := len(positions)

	var normals [][3]float32
	if normalAccessor, ok := prim.Attributes["NORMAL"]; ok {
		normals, err = parser.ReadVec3Accessor(normalAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
	}

	var texCoords [][2]float32
	if texCoordAccessor, ok := prim.Attributes["TEXCOORD_0"]; ok {
		texCoords, err = parser.ReadVec2Accessor(texCoordAccessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = parser.ReadIndicesAccessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, vertexCount)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("index %d out of range for %d vertices", idx, vertexCount)
		}
	}

	if normals == nil {
		normals = generateNormals(positions, indices)
	}

	normalMat := world.normalMatrix()
	flipWinding := world.determinant3() < 0

	uv := func(i uint32) common.Vec2 {
		if int(i) < len(texCoords) {
			return common.Vec2{texCoords[i][0], texCoords[i][1]}
		}
		return common.Vec2{}
	}
	nrm := func(i uint32) common.Vec3 {
		if int(i) < len(normals) {
			return normalMat.transform(common.Vec3(normals[i])).Normalize()
		}
		return common.Vec3{0, 1, 0}
	}

	tris := make([]geometry.Triangle, 0, len(indices)/3)
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if flipWinding {
			// A mirroring transform reverses orientation; swap two vertices
			// so the geometric normal still matches the shading normals.
			i1, i2 = i2, i1
		}
		tris = append(tris, geometry.Triangle{
			V0: world.transformPoint(common.Vec3(positions[i0])),
			V1: world.transformPoint(common.Vec3(positions[i1])),
			V2: world.transformPoint(common.Vec3(positions[i2])),
			N0: nrm(i0), N1: nrm(i1), N2: nrm(i2),
			UV0: uv(i0), UV1: uv(i1), UV2: uv(i2),
			MaterialIndex: materialIndex,
		})
	}
	return tris, nil
}

// generateNormals computes smooth area-weighted vertex normals for a
// primitive that carries no NORMAL attribute. Face normals are accumulated
// onto every vertex of their triangle and normalized at the end.
func generateNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	n := len(positions)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[i0], positions[i1], positions[i2]

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Cross product: face normal, length proportional to triangle area.
		face := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}

		for _, idx := range []uint32{i0, i1, i2} {
			accum[idx][0] += face[0]
			accum[idx][1] += face[1]
			accum[idx][2] += face[2]
		}
	}

	result := make([][3]float32, n)
	for i := range accum {
		length := float32(math.Sqrt(float64(accum[i][0]*accum[i][0] + accum[i][1]*accum[i][1] + accum[i][2]*accum[i][2])))
		if length < 1e-6 {
			result[i] = [3]float32{0, 1, 0}
			continue
		}
		inv := 1 / length
		result[i] = [3]float32{accum[i][0] * inv, accum[i][1] * inv, accum[i][2] * inv}
	}
	return result
}

// convertMaterial maps a glTF material onto the tracer's material model.
// Texture references are ignored; only the scalar and color factors carry
// over.
func convertMaterial(gm *gltfMaterial) material.Material {
	var opts []material.Option

	if pbr := gm.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			opts = append(opts, material.WithAlbedo(pbr.BaseColorFactor[0], pbr.BaseColorFactor[1], pbr.BaseColorFactor[2]))
		}
		// glTF defaults metallic and roughness to 1.0 when the pbr block is
		// present but the factor is omitted.
		metallic, roughness := float32(1), float32(1)
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
		opts = append(opts, material.WithMetallic(metallic), material.WithRoughness(roughness))
	}

	if gm.EmissiveFactor != nil {
		strength := float32(1)
		if ext := gm.Extensions; ext != nil && ext.EmissiveStrength != nil && ext.EmissiveStrength.EmissiveStrength != nil {
			strength = *ext.EmissiveStrength.EmissiveStrength
		}
		opts = append(opts, material.WithEmission(gm.EmissiveFactor[0], gm.EmissiveFactor[1], gm.EmissiveFactor[2], strength))
	}

	if ext := gm.Extensions; ext != nil {
		if ext.Transmission != nil && ext.Transmission.TransmissionFactor != nil {
			opts = append(opts, material.WithTransmission(*ext.Transmission.TransmissionFactor))
		}
		if ext.IOR != nil && ext.IOR.IOR != nil {
			opts = append(opts, material.WithIOR(*ext.IOR.IOR))
		}
		if ext.Clearcoat != nil && ext.Clearcoat.ClearcoatFactor != nil {
			clearcoatRoughness := float32(0)
			if ext.Clearcoat.ClearcoatRoughnessFactor != nil {
				clearcoatRoughness = *ext.Clearcoat.ClearcoatRoughnessFactor
			}
			opts = append(opts, material.WithClearcoat(*ext.Clearcoat.ClearcoatFactor, clearcoatRoughness))
		}
	}

	return material.New(opts...)
}
