package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/lumen-go/common"
	"github.com/Carmen-Shannon/lumen-go/engine/material"
)

// triangleBufferBase64 returns the base64 payload for a single-triangle
// geometry buffer: three vec3 positions followed by three uint16 indices and
// two bytes of padding.
func triangleBufferBase64(t *testing.T) (string, int) {
	t.Helper()

	var buf bytes.Buffer
	positions := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	if err := binary.Write(&buf, binary.LittleEndian, positions); err != nil {
		t.Fatalf("failed to encode positions: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0}); err != nil {
		t.Fatalf("failed to encode indices: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Len()
}

// triangleDocumentJSON builds a complete single-triangle glTF document. The
// caller supplies the nodes array and an optional materials block so tests
// can vary transforms and material assignment around shared geometry.
func triangleDocumentJSON(t *testing.T, nodesJSON, materialsJSON, primitiveExtra string) string {
	t.Helper()

	payload, byteLength := triangleBufferBase64(t)
	return fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"scene": 0,
		"scenes": [{"nodes": [0]}],
		"nodes": %s,
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1%s}]}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [
			{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 6}
		],
		"buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]%s
	}`, nodesJSON, primitiveExtra, byteLength, payload, materialsJSON)
}

func TestLoadReaderSingleTriangle(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0}]`,
		`, "materials": [{"pbrMetallicRoughness": {"baseColorFactor": [1, 0, 0, 1], "metallicFactor": 0, "roughnessFactor": 0.25}}]`,
		`, "material": 0`)

	mesh, err := NewLoader().LoadReader("tri", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("expected load to succeed; got %v", err)
	}

	if len(mesh.Triangles) != 1 {
		t.Fatalf("expected 1 triangle; got %d", len(mesh.Triangles))
	}
	tri := mesh.Triangles[0]
	if tri.V0 != (common.Vec3{0, 0, 0}) || tri.V1 != (common.Vec3{1, 0, 0}) || tri.V2 != (common.Vec3{0, 1, 0}) {
		t.Fatalf("unexpected vertices: %v %v %v", tri.V0, tri.V1, tri.V2)
	}
	// No NORMAL attribute: normals are generated from the winding, facing +Z.
	if tri.N0 != (common.Vec3{0, 0, 1}) {
		t.Fatalf("expected generated normal (0, 0, 1); got %v", tri.N0)
	}

	if len(mesh.Materials) != 1 {
		t.Fatalf("expected 1 material; got %d", len(mesh.Materials))
	}
	mat := mesh.Materials[0]
	if mat.Albedo != [3]float32{1, 0, 0} {
		t.Fatalf("expected red albedo; got %v", mat.Albedo)
	}
	if mat.Metallic != 0 || mat.Roughness != 0.25 {
		t.Fatalf("expected metallic 0, roughness 0.25; got %v, %v", mat.Metallic, mat.Roughness)
	}
	if tri.MaterialIndex != 0 {
		t.Fatalf("expected material index 0; got %d", tri.MaterialIndex)
	}
}

func TestLoadReaderBakesNodeTransform(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0, "translation": [0, 0, 5], "scale": [2, 2, 2]}]`, "", "")

	mesh, err := NewLoader().LoadReader("tri", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("expected load to succeed; got %v", err)
	}

	tri := mesh.Triangles[0]
	if tri.V0 != (common.Vec3{0, 0, 5}) {
		t.Fatalf("expected V0 at (0, 0, 5); got %v", tri.V0)
	}
	if tri.V1 != (common.Vec3{2, 0, 5}) {
		t.Fatalf("expected V1 at (2, 0, 5); got %v", tri.V1)
	}
	// Uniform scale and translation leave directions alone.
	if tri.N0 != (common.Vec3{0, 0, 1}) {
		t.Fatalf("expected normal (0, 0, 1); got %v", tri.N0)
	}
}

func TestLoadReaderMirrorFlipsWinding(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0, "scale": [-1, 1, 1]}]`, "", "")

	mesh, err := NewLoader().LoadReader("tri", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("expected load to succeed; got %v", err)
	}

	tri := mesh.Triangles[0]
	gn := tri.GeometricNormal().Normalize()
	n := tri.N0
	if gn.Dot(n) < 0.99 {
		t.Fatalf("expected geometric normal to agree with shading normal after mirroring; got %v vs %v", gn, n)
	}
}

func TestLoadReaderDefaultMaterial(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0}]`, "", "")

	fallback := material.New(material.WithAlbedo(0, 1, 0))
	mesh, err := NewLoader(WithDefaultMaterial(fallback)).LoadReader("tri", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("expected load to succeed; got %v", err)
	}

	if len(mesh.Materials) != 1 {
		t.Fatalf("expected single fallback material; got %d", len(mesh.Materials))
	}
	if mesh.Materials[0].Albedo != [3]float32{0, 1, 0} {
		t.Fatalf("expected fallback albedo; got %v", mesh.Materials[0].Albedo)
	}
	if mesh.Triangles[0].MaterialIndex != 0 {
		t.Fatalf("expected material index 0; got %d", mesh.Triangles[0].MaterialIndex)
	}
}

func TestLoadReaderCachesByName(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0}]`, "", "")

	l := NewLoader()
	first, err := l.LoadReader("tri", strings.NewReader(doc), false)
	if err != nil {
		t.Fatalf("expected load to succeed; got %v", err)
	}
	second, err := l.LoadReader("tri", strings.NewReader("not even json"), false)
	if err != nil {
		t.Fatalf("expected cache hit to skip parsing; got %v", err)
	}
	if first != second {
		t.Fatal("expected cached mesh pointer")
	}
	if l.Get("tri") != first {
		t.Fatal("expected Get to return the cached mesh")
	}
	if l.Get("missing") != nil {
		t.Fatal("expected nil for unknown cache key")
	}
}

func TestLoadReaderGLB(t *testing.T) {
	doc := triangleDocumentJSON(t, `[{"mesh": 0}]`, "", "")

	// Assemble a GLB container: 12-byte header, padded JSON chunk.
	jsonChunk := []byte(doc)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}

	var glb bytes.Buffer
	total := uint32(12 + 8 + len(jsonChunk))
	binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: total})
	binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: gltfGLBChunkJSON})
	glb.Write(jsonChunk)

	mesh, err := NewLoader().LoadReader("tri.glb", &glb, true)
	if err != nil {
		t.Fatalf("expected GLB load to succeed; got %v", err)
	}
	if len(mesh.Triangles) != 1 {
		t.Fatalf("expected 1 triangle; got %d", len(mesh.Triangles))
	}
}

func TestLoadReaderRejectsBadVersion(t *testing.T) {
	doc := `{"asset": {"version": "1.0"}}`
	if _, err := NewLoader().LoadReader("old", strings.NewReader(doc), false); err == nil {
		t.Fatal("expected glTF 1.0 to be rejected")
	}
}

func TestLoadReaderRejectsEmptyGeometry(t *testing.T) {
	doc := `{"asset": {"version": "2.0"}, "scenes": [{"nodes": []}], "scene": 0}`
	if _, err := NewLoader().LoadReader("empty", strings.NewReader(doc), false); err == nil {
		t.Fatal("expected document without geometry to be rejected")
	}
}

func TestConvertMaterialExtensions(t *testing.T) {
	transmission := float32(1)
	ior := float32(1.5)
	strength := float32(15)
	clearcoat := float32(0.8)
	clearcoatRoughness := float32(0.1)

	gm := &gltfMaterial{
		EmissiveFactor: &[3]float32{1, 0.9, 0.7},
		Extensions: &gltfMaterialExtensions{
			Transmission:     &gltfTransmissionExt{TransmissionFactor: &transmission},
			IOR:              &gltfIORExt{IOR: &ior},
			EmissiveStrength: &gltfEmissiveStrengthExt{EmissiveStrength: &strength},
			Clearcoat:        &gltfClearcoatExt{ClearcoatFactor: &clearcoat, ClearcoatRoughnessFactor: &clearcoatRoughness},
		},
	}

	mat := convertMaterial(gm)
	if mat.Transmission != 1 {
		t.Fatalf("expected transmission 1; got %v", mat.Transmission)
	}
	if mat.IOR != 1.5 {
		t.Fatalf("expected IOR 1.5; got %v", mat.IOR)
	}
	if mat.Emission != [3]float32{1, 0.9, 0.7} || mat.EmissionStrength != 15 {
		t.Fatalf("expected emission (1, 0.9, 0.7) x15; got %v x%v", mat.Emission, mat.EmissionStrength)
	}
	if mat.Clearcoat != 0.8 || mat.ClearcoatRoughness != 0.1 {
		t.Fatalf("expected clearcoat 0.8/0.1; got %v/%v", mat.Clearcoat, mat.ClearcoatRoughness)
	}
}

func TestQuatRotationTransform(t *testing.T) {
	// 90 degrees about +Z maps +X to +Y.
	s := float32(math.Sqrt2 / 2)
	node := &gltfNode{Rotation: &[4]float32{0, 0, s, s}}
	m := nodeLocalTransform(node)

	got := m.transformPoint(common.Vec3{1, 0, 0})
	want := common.Vec3{0, 1, 0}
	for i := 0; i < 3; i++ {
		if diff := got[i] - want[i]; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("expected %v; got %v", want, got)
		}
	}
}

func TestNormalMatrixNonUniformScale(t *testing.T) {
	// Under scale (2, 1, 1) the plane x+z=1 tilts; its normal must be
	// transformed by the inverse transpose, not the transform itself.
	node := &gltfNode{Scale: &[3]float32{2, 1, 1}}
	m := nodeLocalTransform(node)

	n := m.normalMatrix().transform(common.Vec3{1, 0, 1}).Normalize()
	want := common.Vec3{1, 0, 2}.Normalize()
	for i := 0; i < 3; i++ {
		if diff := n[i] - want[i]; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("expected %v; got %v", want, n)
		}
	}
}
