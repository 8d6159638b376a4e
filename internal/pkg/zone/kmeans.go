package zone

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// kmeans clusters the rows of x into k groups. Each restart seeds centres
// with k-means++ from one seeded stream; the lowest inertia run wins and
// ties keep the earlier run. The caller guarantees at least k distinct rows.
func kmeans(x *mat.Dense, k int, seed uint64, restarts, maxIter int) []int {
	n, _ := x.Dims()
	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, x)
	}

	rnd := rand.New(rand.NewPCG(seed, seed))
	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < restarts; r++ {
		centers := seedCenters(points, k, rnd)
		labels, inertia := lloyd(points, centers, maxIter)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// seedCenters picks k centres by D² sampling.
func seedCenters(points [][]float64, k int, rnd *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), points[rnd.IntN(len(points))]...))

	d2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d2[i] = math.Inf(1)
			for _, c := range centers {
				d2[i] = math.Min(d2[i], sqDist(p, c))
			}
			total += d2[i]
		}

		pick := -1
		target := rnd.Float64() * total
		cum := 0.0
		for i, d := range d2 {
			if d == 0 {
				continue
			}
			pick = i
			cum += d
			if cum >= target {
				break
			}
		}
		centers = append(centers, append([]float64(nil), points[pick]...))
	}
	return centers
}

func nearest(p []float64, centers [][]float64) (int, float64) {
	idx, best := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < best {
			idx, best = c, d
		}
	}
	return idx, best
}

// lloyd refines centers in place and returns the labels and inertia.
func lloyd(points [][]float64, centers [][]float64, maxIter int) ([]int, float64) {
	k := len(centers)
	dim := len(points[0])
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			if c, _ := nearest(p, centers); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}

		for c := range counts {
			counts[c] = 0
		}
		for _, l := range labels {
			counts[l]++
		}
		// An empty cluster takes the point farthest from its centre.
		for c := range counts {
			if counts[c] > 0 {
				continue
			}
			far, farDist := -1, -1.0
			for i, p := range points {
				if counts[labels[i]] < 2 {
					continue
				}
				if d := sqDist(p, centers[labels[i]]); d > farDist {
					far, farDist = i, d
				}
			}
			counts[labels[far]]--
			labels[far] = c
			counts[c] = 1
			changed = true
		}

		for c := range centers {
			for j := 0; j < dim; j++ {
				centers[c][j] = 0
			}
		}
		for i, p := range points {
			floats.Add(centers[labels[i]], p)
		}
		for c := range centers {
			floats.Scale(1/float64(counts[c]), centers[c])
		}

		if !changed {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centers[labels[i]])
	}
	return labels, inertia
}
