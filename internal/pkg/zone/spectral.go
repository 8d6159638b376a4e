package zone

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// embed returns the n×k spectral embedding of w: the eigenvectors of the k
// smallest eigenvalues of the normalised Laplacian, scaled by D^-1/2, with
// each vector's sign fixed so its largest magnitude entry is positive.
func embed(w mat.Symmetric, k int) (*mat.Dense, error) {
	n := w.SymmetricDim()

	dd := make([]float64, n)
	isolated := make([]bool, n)
	for i := 0; i < n; i++ {
		deg := 0.0
		for j := 0; j < n; j++ {
			if i != j {
				deg += w.At(i, j)
			}
		}
		dd[i] = math.Sqrt(deg)
		if dd[i] == 0 {
			dd[i], isolated[i] = 1, true
		}
	}

	// An isolated bus keeps a zero diagonal so it has eigenvalue 0 of its own.
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if !isolated[i] {
			lap.SetSym(i, i, 1)
		}
		for j := i + 1; j < n; j++ {
			if v := w.At(i, j); v != 0 {
				lap.SetSym(i, j, -v/(dd[i]*dd[j]))
			}
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(lap, true); !ok {
		return nil, ErrNotConverged
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	embedding := mat.NewDense(n, k, nil)
	col := make([]float64, n)
	for c := 0; c < k; c++ {
		mat.Col(col, c, &vecs)
		for i := range col {
			col[i] /= dd[i]
		}
		if col[maxAbsIndex(col)] < 0 {
			floats.Scale(-1, col)
		}
		embedding.SetCol(c, col)
	}
	return embedding, nil
}

func maxAbsIndex(x []float64) int {
	idx, largest := 0, -1.0
	for i, v := range x {
		if a := math.Abs(v); a > largest {
			idx, largest = i, a
		}
	}
	return idx
}

// distinctRows counts the rows of x that are not within a small tolerance of
// an earlier row.
func distinctRows(x *mat.Dense) int {
	const tol = 1e-10
	n, _ := x.Dims()
	var distinct [][]float64
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		unique := true
		for _, d := range distinct {
			if floats.Distance(row, d, 2) <= tol {
				unique = false
				break
			}
		}
		if unique {
			distinct = append(distinct, row)
		}
	}
	return len(distinct)
}
