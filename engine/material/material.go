package material

// Material describes a physically-based surface. Scenes carry a flat material
// table; triangles reference entries by index and materials are immutable once
// a scene is uploaded.
//
// Emission and transmission are independent mechanisms: emission always adds
// radiance at a hit, while transmission only selects the reflect-vs-refract
// sampling branch.
type Material struct {
	// Albedo is the base RGB reflectance.
	Albedo [3]float32
	// Metallic blends between dielectric (0) and conductor (1) response.
	Metallic float32
	// Roughness is the GGX microfacet roughness in [0, 1].
	Roughness float32
	// Emission is the emitted RGB radiance, scaled by EmissionStrength.
	Emission [3]float32
	// EmissionStrength multiplies Emission.
	EmissionStrength float32
	// IOR is the index of refraction used by the dielectric Fresnel term.
	IOR float32
	// Transmission above 0.5 routes sampling through the refractive branch.
	Transmission float32
	// Clearcoat adds a second, fixed-F0 specular lobe on top of the base.
	Clearcoat float32
	// ClearcoatRoughness is the roughness of the clearcoat lobe.
	ClearcoatRoughness float32
}

// Option configures a material during construction.
type Option func(*Material)

// WithAlbedo is an option builder that sets the base RGB reflectance.
//
// Parameters:
//   - r, g, b: the base color components
//
// Returns:
//   - Option: a function that applies the albedo to a material
func WithAlbedo(r, g, b float32) Option {
	return func(m *Material) {
		m.Albedo = [3]float32{r, g, b}
	}
}

// WithMetallic is an option builder that sets the metallic factor.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - Option: a function that applies the metallic factor to a material
func WithMetallic(metallic float32) Option {
	return func(m *Material) {
		m.Metallic = metallic
	}
}

// WithRoughness is an option builder that sets the GGX roughness.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - Option: a function that applies the roughness to a material
func WithRoughness(roughness float32) Option {
	return func(m *Material) {
		m.Roughness = roughness
	}
}

// WithEmission is an option builder that sets the emitted radiance.
//
// Parameters:
//   - r, g, b: the emitted color components
//   - strength: the multiplier applied to the emitted color
//
// Returns:
//   - Option: a function that applies the emission to a material
func WithEmission(r, g, b, strength float32) Option {
	return func(m *Material) {
		m.Emission = [3]float32{r, g, b}
		m.EmissionStrength = strength
	}
}

// WithIOR is an option builder that sets the index of refraction.
//
// Parameters:
//   - ior: the index of refraction (vacuum = 1.0, glass ≈ 1.5)
//
// Returns:
//   - Option: a function that applies the IOR to a material
func WithIOR(ior float32) Option {
	return func(m *Material) {
		m.IOR = ior
	}
}

// WithTransmission is an option builder that sets the transmission factor.
//
// Parameters:
//   - transmission: values above 0.5 make the surface refractive
//
// Returns:
//   - Option: a function that applies the transmission to a material
func WithTransmission(transmission float32) Option {
	return func(m *Material) {
		m.Transmission = transmission
	}
}

// WithClearcoat is an option builder that sets the clearcoat lobe.
//
// Parameters:
//   - clearcoat: the clearcoat weight in [0, 1]
//   - roughness: the clearcoat lobe roughness
//
// Returns:
//   - Option: a function that applies the clearcoat to a material
func WithClearcoat(clearcoat, roughness float32) Option {
	return func(m *Material) {
		m.Clearcoat = clearcoat
		m.ClearcoatRoughness = roughness
	}
}

// New creates a material with neutral defaults (matte grey dielectric) and
// applies the given options.
//
// Parameters:
//   - opts: functional options configuring the material
//
// Returns:
//   - Material: the configured material value
func New(opts ...Option) Material {
	m := Material{
		Albedo:    [3]float32{0.8, 0.8, 0.8},
		Roughness: 0.5,
		IOR:       1.45,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}
