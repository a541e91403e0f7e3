package tracer

import "github.com/Carmen-Shannon/lumen-go/common"

// CPU mirrors of the kernel's Cook-Torrance terms. Kept in lockstep with the
// WGSL implementation so the throughput math can be verified host-side, the
// same way rng.go mirrors the sampler.

// fresnelSchlickVec is the Schlick approximation of the Fresnel reflectance
// for a reflectance-at-normal-incidence f0.
func fresnelSchlickVec(cosTheta float32, f0 common.Vec3) common.Vec3 {
	m := common.Clamp(1-cosTheta, 0, 1)
	m5 := m * m * m * m * m
	return f0.Add(common.Vec3{1, 1, 1}.Sub(f0).Scale(m5))
}

// smithGGX is the combined Smith shadowing-masking term with the Schlick-GGX
// approximation, k = alpha / 2.
func smithGGX(nDotV, nDotL, roughness float32) float32 {
	a := roughness * roughness
	if a < 1e-4 {
		a = 1e-4
	}
	k := a * 0.5
	gv := nDotV / (nDotV*(1-k) + k)
	gl := nDotL / (nDotL*(1-k) + k)
	return gv * gl
}

// specularWeight is the throughput multiplier for a specular bounce sampled
// from the GGX distribution. The normal distribution cancels against the
// sampling pdf, leaving Fresnel, the Smith term, and the geometric dot
// products. The second return is false when the configuration degenerates
// the pdf and the path must terminate.
func specularWeight(nDotV, nDotL, nDotH, vDotH float32, f0 common.Vec3, roughness, specularProb float32) (common.Vec3, bool) {
	const eps = 1e-6
	if nDotL <= eps || nDotV <= eps || nDotH <= eps || vDotH <= eps {
		return common.Vec3{}, false
	}
	f := fresnelSchlickVec(vDotH, f0)
	g := smithGGX(nDotV, nDotL, roughness)
	return f.Scale(g * vDotH / (nDotV * nDotH * specularProb)), true
}

// diffuseWeight is the throughput multiplier for a cosine-sampled diffuse
// bounce. The cosine cancels against the pdf; the albedo is scaled by the
// energy the specular lobe did not claim.
func diffuseWeight(nDotV float32, f0, albedo common.Vec3, metallic, specularProb float32) common.Vec3 {
	f := fresnelSchlickVec(nDotV, f0)
	diffuse := albedo.Mul(common.Vec3{1, 1, 1}.Sub(f)).Scale(1 - metallic)
	return diffuse.Scale(1 / (1 - specularProb))
}

// rouletteSurvival is the Russian roulette continuation probability for a
// path with the given throughput.
func rouletteSurvival(throughput common.Vec3) float32 {
	return common.Clamp(throughput.MaxComponent(), 0.05, 0.95)
}
