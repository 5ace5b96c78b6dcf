// Package adapt applies feature-space transforms to observations before
// they are scored against adapted mixture components.
package adapt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular reports a transform matrix with zero determinant.
var ErrSingular = errors.New("adapt: singular transform matrix")

// Transform is an affine feature-space transform y = A*x + b.
type Transform struct {
	A      *mat.Dense
	B      *mat.VecDense
	LogDet float64 // log|det A|, the Jacobian correction
}

// NewTransform builds a transform from a row-major square matrix and a bias.
// A nil bias means zero.
func NewTransform(rows [][]float64, bias []float64) (*Transform, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("adapt: empty transform matrix")
	}
	data := make([]float64, 0, n*n)
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("adapt: matrix row %d has %d cols, want %d", i, len(r), n)
		}
		data = append(data, r...)
	}
	if bias == nil {
		bias = make([]float64, n)
	}
	if len(bias) != n {
		return nil, fmt.Errorf("adapt: bias has %d dims, want %d", len(bias), n)
	}
	a := mat.NewDense(n, n, data)
	logDet, sign := mat.LogDet(a)
	if sign == 0 || math.IsInf(logDet, -1) || math.IsNaN(logDet) {
		return nil, ErrSingular
	}
	return &Transform{
		A:      a,
		B:      mat.NewVecDense(n, append([]float64(nil), bias...)),
		LogDet: logDet,
	}, nil
}

// Dim returns the feature width the transform applies to.
func (t *Transform) Dim() int {
	r, _ := t.A.Dims()
	return r
}

// Apply writes A*x + b into dst and returns LogDet. dst and x must not
// overlap.
func (t *Transform) Apply(dst, x []float64) float64 {
	n := t.Dim()
	y := mat.NewVecDense(n, dst[:n])
	y.MulVec(t.A, mat.NewVecDense(n, x[:n]))
	y.AddVec(y, t.B)
	return t.LogDet
}
