package zone

import (
	"errors"
	"math"
	"sort"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/v3/assert"
)

// twoCliques is two triangles of strong lines joined by one weak line 2-3.
func twoCliques() *mat.SymDense {
	w := mat.NewSymDense(6, nil)
	for _, group := range [][]int{{0, 1, 2}, {3, 4, 5}} {
		for a := 0; a < len(group); a++ {
			for b := a + 1; b < len(group); b++ {
				w.SetSym(group[a], group[b], 10)
			}
		}
	}
	w.SetSym(2, 3, 0.1)
	return w
}

func path(n int) *mat.SymDense {
	w := mat.NewSymDense(n, nil)
	for i := 0; i+1 < n; i++ {
		w.SetSym(i, i+1, 1)
	}
	return w
}

func TestPartitionSeparatesCliques(t *testing.T) {
	a, err := Partition(twoCliques(), Config{K: 2, Seed: 42})
	assert.NilError(t, err)

	assert.Equal(t, len(a), 6)
	assert.Equal(t, a[0], a[1])
	assert.Equal(t, a[1], a[2])
	assert.Equal(t, a[3], a[4])
	assert.Equal(t, a[4], a[5])
	assert.Assert(t, a[0] != a[3])
}

func TestPartitionIsTotal(t *testing.T) {
	k := 3
	a, err := Partition(path(9), Config{K: k, Seed: 7})
	assert.NilError(t, err)

	assert.Equal(t, len(a), 9)
	for i, z := range a {
		assert.Assert(t, z >= 0 && z < k, "bus %d in zone %d", i, z)
	}
}

func TestPartitionOneBusPerZone(t *testing.T) {
	a, err := Partition(path(3), Config{K: 3, Seed: 1})
	assert.NilError(t, err)

	got := append([]int(nil), a...)
	sort.Ints(got)
	assert.DeepEqual(t, got, []int{0, 1, 2})
}

func TestPartitionDeterministic(t *testing.T) {
	cfg := Config{K: 3, Seed: 42}
	a1, err := Partition(path(12), cfg)
	assert.NilError(t, err)
	a2, err := Partition(path(12), cfg)
	assert.NilError(t, err)

	assert.DeepEqual(t, a1, a2)
}

func TestPartitionRelabel(t *testing.T) {
	raw, err := Partition(twoCliques(), Config{K: 2, Seed: 42})
	assert.NilError(t, err)

	swapped, err := Partition(twoCliques(), Config{K: 2, Seed: 42, Relabel: []int{1, 0}})
	assert.NilError(t, err)

	for i := range raw {
		assert.Equal(t, swapped[i], 1-raw[i])
	}
}

func TestSingleZone(t *testing.T) {
	a, err := Partition(path(4), Config{K: 1})
	assert.NilError(t, err)
	assert.DeepEqual(t, a, Assignment{0, 0, 0, 0})
}

func TestPartitionErrors(t *testing.T) {
	disconnected := mat.NewSymDense(6, nil)
	disconnected.SetSym(0, 1, 1)
	disconnected.SetSym(2, 3, 1)
	disconnected.SetSym(4, 5, 1)

	negative := path(3)
	negative.SetSym(0, 2, -1)

	notANumber := path(3)
	notANumber.SetSym(0, 1, math.NaN())

	tests := []struct {
		name string
		w    mat.Symmetric
		cfg  Config
		want error
	}{
		{"no zones", path(3), Config{K: 0}, ErrBadZoneCount},
		{"too few buses", path(3), Config{K: 7}, ErrTooFewBuses},
		{"empty matrix", &mat.SymDense{}, Config{K: 1}, ErrTooFewBuses},
		{"too many components", disconnected, Config{K: 2}, ErrDegenerateGraph},
		{"negative weight", negative, Config{K: 2}, ErrBadAffinity},
		{"nan weight", notANumber, Config{K: 2}, ErrBadAffinity},
		{"short relabel", path(3), Config{K: 2, Relabel: []int{0}}, ErrBadRelabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Partition(tt.w, tt.cfg)
			assert.Assert(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestComponentsWithinZoneCount(t *testing.T) {
	w := mat.NewSymDense(4, nil)
	w.SetSym(0, 1, 1)
	w.SetSym(2, 3, 1)

	assert.Equal(t, components(w), 2)
	a, err := Partition(w, Config{K: 2, Seed: 3})
	assert.NilError(t, err)
	assert.Equal(t, a[0], a[1])
	assert.Equal(t, a[2], a[3])
	assert.Assert(t, a[0] != a[2])
}

func TestIsolatedBusesGetOwnZones(t *testing.T) {
	// buses 10 and 11 have no lines
	w := mat.NewSymDense(12, nil)
	for i := 0; i+1 < 10; i++ {
		w.SetSym(i, i+1, 1)
	}

	a, err := Partition(w, Config{K: 3, Seed: 42})
	assert.NilError(t, err)

	for i := 1; i < 10; i++ {
		assert.Equal(t, a[i], a[0], "path bus %d", i)
	}
	assert.Assert(t, a[10] != a[0])
	assert.Assert(t, a[11] != a[0])
	assert.Assert(t, a[10] != a[11])
}

func TestEmbeddingSeparatesIsolatedBus(t *testing.T) {
	w := mat.NewSymDense(5, nil)
	for i := 0; i+1 < 4; i++ {
		w.SetSym(i, i+1, 1)
	}

	emb, err := embed(w, 2)
	assert.NilError(t, err)

	isolated := mat.Row(nil, 4, emb)
	assert.Assert(t, floats.Norm(isolated, 2) > 0.5, "isolated bus embedded at %v", isolated)
	assert.Equal(t, distinctRows(emb), 2)
}

func TestRelabelTable(t *testing.T) {
	identity, err := RelabelTable(nil, 3)
	assert.NilError(t, err)
	assert.DeepEqual(t, identity, []int{0, 1, 2})

	table, err := RelabelTable([]int{3, 2, 1, 5, 4, 6, 0}, 7)
	assert.NilError(t, err)
	assert.DeepEqual(t, table, []int{3, 2, 1, 5, 4, 6, 0})

	_, err = RelabelTable([]int{0, 0}, 2)
	assert.Assert(t, errors.Is(err, ErrBadRelabel))

	_, err = RelabelTable([]int{0, 2}, 2)
	assert.Assert(t, errors.Is(err, ErrBadRelabel))

	_, err = RelabelTable([]int{0, 1, 2}, 2)
	assert.Assert(t, errors.Is(err, ErrBadRelabel))
}

func TestMembers(t *testing.T) {
	a := Assignment{1, 0, 1, 2}
	assert.DeepEqual(t, a.Members(1), []int{0, 2})
	assert.Equal(t, len(a.Members(5)), 0)
}

func TestEmbeddingSignAndScale(t *testing.T) {
	emb, err := embed(twoCliques(), 2)
	assert.NilError(t, err)

	rows, cols := emb.Dims()
	assert.Equal(t, rows, 6)
	assert.Equal(t, cols, 2)

	for c := 0; c < cols; c++ {
		col := mat.Col(nil, c, emb)
		assert.Assert(t, col[maxAbsIndex(col)] > 0)
	}
	assert.Assert(t, distinctRows(emb) >= 2)
}

func TestKmeansSeparatesGroups(t *testing.T) {
	x := mat.NewDense(6, 1, []float64{0, 0.1, 0.2, 10, 10.1, 10.2})
	labels := kmeans(x, 2, 1, 5, 100)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[4], labels[5])
	assert.Assert(t, labels[0] != labels[3])
}
