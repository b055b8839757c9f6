package backend

import "math"

// meanPool averages hidden states [batch, seq, dims] over positions where
// mask is non-zero. Rows with an all-zero mask pool to the zero vector.
func meanPool(hidden []float32, mask [][]int64, seq, dims int) [][]float32 {
	out := make([][]float32, len(mask))
	for b := range mask {
		pooled := make([]float32, dims)
		var n float32
		for s := 0; s < seq && s < len(mask[b]); s++ {
			if mask[b][s] == 0 {
				continue
			}
			off := (b*seq + s) * dims
			for d := 0; d < dims; d++ {
				pooled[d] += hidden[off+d]
			}
			n++
		}
		if n > 0 {
			inv := 1 / n
			for d := range pooled {
				pooled[d] *= inv
			}
		}
		out[b] = pooled
	}
	return out
}

// l2Normalize scales v to unit length in place. Zero vectors are left as is.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
