package tracer

// pcgHash is the CPU mirror of the kernel's PCG hash. Kept in lockstep with
// the WGSL implementation so sequence behavior can be verified host-side.
func pcgHash(input uint32) uint32 {
	state := input*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

// rngState is the per-pixel random sequence used by the kernel, mirrored on
// the CPU for testing. Seeding combines pixel coordinates and the frame index
// so every pixel draws a distinct sequence each frame.
type rngState uint32

// newRNGState seeds a sequence for a pixel at the given frame.
func newRNGState(x, y, frame uint32) rngState {
	return rngState(pcgHash(x*1973 + y*9277 + frame*26699))
}

// next advances the state and returns a uniform float in [0, 1].
func (r *rngState) next() float32 {
	state := uint32(*r)*747796405 + 2891336453
	*r = rngState(state)
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return float32((word>>22)^word) / 4294967295.0
}
