package loader

import "github.com/Carmen-Shannon/lumen-go/engine/material"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDefaultMaterial is an option builder that sets the material assigned to
// primitives that reference no material.
//
// Parameters:
//   - mat: the fallback material
//
// Returns:
//   - LoaderBuilderOption: a function that applies the fallback material option to a loader
func WithDefaultMaterial(mat material.Material) LoaderBuilderOption {
	return func(l *loader) {
		l.defaultMaterial = mat
	}
}

// WithMesh is an option builder that pre-populates the mesh cache.
//
// Parameters:
//   - key: the cache key for the mesh
//   - mesh: the mesh to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mesh option to a loader
func WithMesh(key string, mesh *Mesh) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = mesh
	}
}
