package imaging

// depthScale returns the linear factor between two depths: 256 between 8 and
// 16 bits, 65536 for any step involving 32 bits.
func depthScale(from, to Depth) uint32 {
	if from < to {
		from, to = to, from
	}
	switch {
	case from == to:
		return 1
	case from == Depth16 && to == Depth8:
		return 256
	default:
		return 65536
	}
}

// Normalize converts a plane to the target bit depth using linear scaling.
//
// Down-conversion is exact integer floor division: 16->8 divides by 256,
// 32->8 and 32->16 divide by 65536. Results that still exceed the target
// range saturate at its maximum. Up-conversion is the inverse
// multiplication (8->16 multiplies by 256). A plane already at the target
// depth is returned unchanged, not copied.
func Normalize(p *Plane, target Depth) *Plane {
	if p.Depth == target {
		return p
	}

	out := &Plane{
		Width:   p.Width,
		Height:  p.Height,
		Depth:   target,
		Samples: p.Samples,
		Pix:     make([]uint32, len(p.Pix)),
	}
	for i, v := range p.Pix {
		out.Pix[i] = NormalizeValue(v, p.Depth, target)
	}
	return out
}

// NormalizeValue applies the same scaling as Normalize to a single sample.
func NormalizeValue(v uint32, from, to Depth) uint32 {
	f := depthScale(from, to)
	if from > to {
		return min(v/f, to.Max())
	}
	return uint32(min(uint64(v)*uint64(f), uint64(to.Max())))
}
