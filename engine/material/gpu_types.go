package material

import (
	"encoding/binary"
	"math"
)

// GPUMaterialSize is the byte stride of one packed material: 16 float lanes.
// The kernel indexes the material buffer by this stride.
const GPUMaterialSize = 64

// GPUMaterial is the GPU-aligned representation of a Material.
// Matches the WGSL Material struct layout exactly.
// Size: 64 bytes (std430 aligned).
type GPUMaterial struct {
	Albedo             [3]float32 // offset  0: base color (12 bytes)
	Metallic           float32    // offset 12: metallic factor (4 bytes)
	Roughness          float32    // offset 16: GGX roughness (4 bytes)
	Emission           [3]float32 // offset 20: emitted radiance (12 bytes)
	EmissionStrength   float32    // offset 32: emission multiplier (4 bytes)
	IOR                float32    // offset 36: index of refraction (4 bytes)
	Transmission       float32    // offset 40: refractive branch gate (4 bytes)
	Clearcoat          float32    // offset 44: clearcoat weight (4 bytes)
	ClearcoatRoughness float32    // offset 48: clearcoat roughness (4 bytes, + 12 pad)
}

// NewGPUMaterial packs a Material into its GPU representation.
func NewGPUMaterial(m *Material) GPUMaterial {
	return GPUMaterial{
		Albedo:             m.Albedo,
		Metallic:           m.Metallic,
		Roughness:          m.Roughness,
		Emission:           m.Emission,
		EmissionStrength:   m.EmissionStrength,
		IOR:                m.IOR,
		Transmission:       m.Transmission,
		Clearcoat:          m.Clearcoat,
		ClearcoatRoughness: m.ClearcoatRoughness,
	}
}

// Marshal serializes the GPUMaterial into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, GPUMaterialSize)
	putF32(buf[0:], g.Albedo[0])
	putF32(buf[4:], g.Albedo[1])
	putF32(buf[8:], g.Albedo[2])
	putF32(buf[12:], g.Metallic)
	putF32(buf[16:], g.Roughness)
	putF32(buf[20:], g.Emission[0])
	putF32(buf[24:], g.Emission[1])
	putF32(buf[28:], g.Emission[2])
	putF32(buf[32:], g.EmissionStrength)
	putF32(buf[36:], g.IOR)
	putF32(buf[40:], g.Transmission)
	putF32(buf[44:], g.Clearcoat)
	putF32(buf[48:], g.ClearcoatRoughness)
	return buf
}

// Unmarshal reads the GPUMaterial back from its packed form.
//
// Parameters:
//   - buf: a buffer of at least GPUMaterialSize bytes
func (g *GPUMaterial) Unmarshal(buf []byte) {
	g.Albedo = [3]float32{getF32(buf[0:]), getF32(buf[4:]), getF32(buf[8:])}
	g.Metallic = getF32(buf[12:])
	g.Roughness = getF32(buf[16:])
	g.Emission = [3]float32{getF32(buf[20:]), getF32(buf[24:]), getF32(buf[28:])}
	g.EmissionStrength = getF32(buf[32:])
	g.IOR = getF32(buf[36:])
	g.Transmission = getF32(buf[40:])
	g.Clearcoat = getF32(buf[44:])
	g.ClearcoatRoughness = getF32(buf[48:])
}

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func getF32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}
