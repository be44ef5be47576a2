// ABOUTME: Euclidean distance between embedding vectors.
// ABOUTME: Accumulates in float64 so rankings are reproducible across platforms.
package embeddings

import "math"

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
