package simulator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// WalshMatrix returns the order×order Walsh matrix: Sylvester–Hadamard rows
// reordered so that row k has exactly k sign changes (sequency order).
// order must be a power of two.
func WalshMatrix(order int) (*mat.Dense, error) {
	if order < 1 || order&(order-1) != 0 {
		return nil, fmt.Errorf("walsh order %d is not a power of two", order)
	}

	h2 := mat.NewDense(2, 2, []float64{1, 1, 1, -1})
	h := mat.NewDense(1, 1, []float64{1})
	for n, _ := h.Dims(); n < order; n, _ = h.Dims() {
		var next mat.Dense
		next.Kronecker(h2, h)
		h = &next
	}

	w := mat.NewDense(order, order, nil)
	for i := 0; i < order; i++ {
		row := h.RawRowView(i)
		w.SetRow(signChanges(row), row)
	}
	return w, nil
}

func signChanges(row []float64) int {
	n := 0
	for i := 1; i < len(row); i++ {
		if row[i] != row[i-1] {
			n++
		}
	}
	return n
}

// WalshSteps turns Walsh row k of the given order into phase-switch steps:
// +1 becomes 0 and -1 becomes 1. A zero order yields no steps.
func WalshSteps(order, k int) ([]int32, error) {
	if order == 0 {
		return []int32{}, nil
	}
	if k < 0 || k >= order {
		return nil, fmt.Errorf("walsh row %d out of range for order %d", k, order)
	}
	w, err := WalshMatrix(order)
	if err != nil {
		return nil, err
	}
	row := w.RawRowView(k)
	steps := make([]int32, len(row))
	for i, v := range row {
		if v < 0 {
			steps[i] = 1
		}
	}
	return steps, nil
}
