package photodedup

import "math"

// dct2D computes the 2-D DCT-II of an n×n matrix (row-major) with the
// orthonormal normalization:
//
//	DCT[u,v] = (2/n)·C(u)·C(v)·Σ M[x,y]·cos(((2x+1)uπ)/(2n))·cos(((2y+1)vπ)/(2n))
//	C(0) = 1/√2, C(k>0) = 1
//
// This is computed as a separable transform (1-D DCT over rows, then over
// columns, each scaled by sqrt(2/n)) — an O(n³) reformulation of the naive
// O(n⁴) double sum. Every coefficient is sqrt(2/n) times the value under a
// single sqrt(2/n) factor; a common positive factor does not change which
// coefficients exceed the median, so the pHash bits are the same either way.
func dct2D(m []float64, n int) []float64 {
	tmp := make([]float64, n*n)
	// DCT each row.
	row := make([]float64, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			row[x] = m[y*n+x]
		}
		out := dct1D(row)
		for x := 0; x < n; x++ {
			tmp[y*n+x] = out[x]
		}
	}
	// DCT each column of the row-transformed matrix.
	out := make([]float64, n*n)
	col := make([]float64, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = tmp[y*n+x]
		}
		res := dct1D(col)
		for y := 0; y < n; y++ {
			out[y*n+x] = res[y]
		}
	}
	return out
}

// dct1D computes the 1-D DCT-II of v with the same C(0)=1/√2 normalization.
func dct1D(v []float64) []float64 {
	n := len(v)
	out := make([]float64, n)
	scale := math.Sqrt(2.0 / float64(n))
	for k := 0; k < n; k++ {
		var sum float64
		for i, x := range v {
			sum += x * math.Cos((math.Pi/float64(n))*(float64(i)+0.5)*float64(k))
		}
		c := 1.0
		if k == 0 {
			c = 1.0 / math.Sqrt2
		}
		out[k] = scale * c * sum
	}
	return out
}
