// gltf_types.go contains the glTF 2.0 data structures the importer
// deserializes. Only the subset needed to extract triangle geometry and
// physically-based material factors is retained; encoding/json silently
// ignores the schema fields the importer never reads.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package loader

// gltfDocument is the root of a glTF JSON document.
type gltfDocument struct {
	// Asset contains metadata about the glTF asset.
	Asset gltfAsset `json:"asset"`

	// Scene is the index of the default scene.
	Scene *int `json:"scene,omitempty"`

	// Scenes is an array of scenes.
	Scenes []gltfScene `json:"scenes,omitempty"`

	// Nodes is an array of nodes (transform hierarchy).
	Nodes []gltfNode `json:"nodes,omitempty"`

	// Meshes is an array of meshes.
	Meshes []gltfMesh `json:"meshes,omitempty"`

	// Accessors define how to interpret buffer data.
	Accessors []gltfAccessor `json:"accessors,omitempty"`

	// BufferViews define portions of buffers.
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`

	// Buffers are raw binary data containers.
	Buffers []gltfBuffer `json:"buffers,omitempty"`

	// Materials is an array of materials.
	Materials []gltfMaterial `json:"materials,omitempty"`
}

// gltfAsset contains metadata about the glTF asset. Version is required and
// must begin with "2.".
type gltfAsset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

// gltfScene is a set of root nodes.
type gltfScene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// gltfNode is a node in the transform hierarchy. A node carries either an
// explicit column-major matrix or a translation/rotation/scale triple.
type gltfNode struct {
	Name     string `json:"name,omitempty"`
	Children []int  `json:"children,omitempty"`
	Mesh     *int   `json:"mesh,omitempty"`

	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
}

// gltfMesh is a set of primitives.
type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

// gltfPrimitive defines one batch of geometry. Standard attribute semantics:
// POSITION, NORMAL, TEXCOORD_0.
type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`

	// Mode is the primitive topology. Only TRIANGLES (4, the default) is
	// supported.
	Mode *int `json:"mode,omitempty"`
}

const gltfPrimitiveModeTriangles = 4

// gltfAccessor defines how to interpret buffer data.
type gltfAccessor struct {
	Name       string `json:"name,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
	ByteOffset int    `json:"byteOffset,omitempty"`

	// ComponentType is the data type of components.
	// 5120=BYTE, 5121=UNSIGNED_BYTE, 5122=SHORT, 5123=UNSIGNED_SHORT, 5125=UNSIGNED_INT, 5126=FLOAT
	ComponentType int `json:"componentType"`

	// Count is the number of elements.
	Count int `json:"count"`

	// Type is the element type (SCALAR, VEC2, VEC3, VEC4, MAT4, ...).
	Type string `json:"type"`
}

const (
	gltfComponentTypeByte          = 5120
	gltfComponentTypeUnsignedByte  = 5121
	gltfComponentTypeShort         = 5122
	gltfComponentTypeUnsignedShort = 5123
	gltfComponentTypeUnsignedInt   = 5125
	gltfComponentTypeFloat         = 5126
)

const (
	gltfAccessorTypeScalar = "SCALAR"
	gltfAccessorTypeVec2   = "VEC2"
	gltfAccessorTypeVec3   = "VEC3"
	gltfAccessorTypeVec4   = "VEC4"
	gltfAccessorTypeMat4   = "MAT4"
)

// gltfBufferView represents a subset of a buffer.
type gltfBufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride *int   `json:"byteStride,omitempty"`
}

// gltfBuffer represents binary data.
type gltfBuffer struct {
	Name string `json:"name,omitempty"`

	// URI is the buffer source (data: URI or external file).
	URI string `json:"uri,omitempty"`

	ByteLength int `json:"byteLength"`

	// Data holds the loaded binary data (not part of JSON, populated during load).
	Data []byte `json:"-"`
}

// gltfMaterial defines the surface appearance of a primitive. The importer
// reads the metallic-roughness core plus the KHR material extensions that map
// onto the path tracer's material model.
type gltfMaterial struct {
	Name string `json:"name,omitempty"`

	PbrMetallicRoughness *gltfPbrMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`

	// EmissiveFactor is the emitted RGB color.
	EmissiveFactor *[3]float32 `json:"emissiveFactor,omitempty"`

	Extensions *gltfMaterialExtensions `json:"extensions,omitempty"`
}

// gltfPbrMetallicRoughness is the metallic-roughness material model.
type gltfPbrMetallicRoughness struct {
	// BaseColorFactor is the base color (RGBA).
	BaseColorFactor *[4]float32 `json:"baseColorFactor,omitempty"`

	// MetallicFactor is the metalness (0.0 = dielectric, 1.0 = metal).
	MetallicFactor *float32 `json:"metallicFactor,omitempty"`

	// RoughnessFactor is the roughness (0.0 = smooth, 1.0 = rough).
	RoughnessFactor *float32 `json:"roughnessFactor,omitempty"`
}

// gltfMaterialExtensions holds the KHR material extensions the importer maps
// onto tracer materials.
type gltfMaterialExtensions struct {
	Transmission     *gltfTransmissionExt     `json:"KHR_materials_transmission,omitempty"`
	IOR              *gltfIORExt              `json:"KHR_materials_ior,omitempty"`
	EmissiveStrength *gltfEmissiveStrengthExt `json:"KHR_materials_emissive_strength,omitempty"`
	Clearcoat        *gltfClearcoatExt        `json:"KHR_materials_clearcoat,omitempty"`
}

// gltfTransmissionExt is KHR_materials_transmission.
type gltfTransmissionExt struct {
	TransmissionFactor *float32 `json:"transmissionFactor,omitempty"`
}

// gltfIORExt is KHR_materials_ior.
type gltfIORExt struct {
	IOR *float32 `json:"ior,omitempty"`
}

// gltfEmissiveStrengthExt is KHR_materials_emissive_strength.
type gltfEmissiveStrengthExt struct {
	EmissiveStrength *float32 `json:"emissiveStrength,omitempty"`
}

// gltfClearcoatExt is KHR_materials_clearcoat.
type gltfClearcoatExt struct {
	ClearcoatFactor          *float32 `json:"clearcoatFactor,omitempty"`
	ClearcoatRoughnessFactor *float32 `json:"clearcoatRoughnessFactor,omitempty"`
}

// gltfGLBHeader is the 12-byte header of a GLB file.
type gltfGLBHeader struct {
	Magic   uint32 // must be 0x46546C67 ("glTF" in ASCII)
	Version uint32 // must be 2
	Length  uint32 // total file length
}

// gltfGLBChunkHeader is the 8-byte header of a GLB chunk.
type gltfGLBChunkHeader struct {
	ChunkLength uint32
	ChunkType   uint32
}

const (
	gltfGLBMagic     = 0x46546C67 // "glTF" in little-endian ASCII
	gltfGLBVersion   = 2
	gltfGLBChunkJSON = 0x4E4F534A // "JSON" in little-endian ASCII
	gltfGLBChunkBIN  = 0x004E4942 // "BIN\0" in little-endian ASCII
)
