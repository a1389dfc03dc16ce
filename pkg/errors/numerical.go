package errors

import (
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
// The reported iteration is the first offending row.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		var unstable []float64
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				unstable = append(unstable, v)
			}
		}
		if len(unstable) > 0 {
			return NewNumericalInstabilityError(operation, unstable, i)
		}
	}
	return nil
}
