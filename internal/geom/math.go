package geom

// VectorMath computes overlap scores of one box against many. Clustering
// works on small inputs, so the scalar implementation is the default; a
// vectorized strategy can be swapped in without touching callers.
type VectorMath interface {
	IoUAgainst(ref Box, boxes []Box) []float64
}

// ScalarMath evaluates IoU one pair at a time.
type ScalarMath struct{}

func (ScalarMath) IoUAgainst(ref Box, boxes []Box) []float64 {
	out := make([]float64, len(boxes))
	for i, b := range boxes {
		out[i] = IoU(ref, b)
	}
	return out
}
