package fitting

import (
	"math"
	"math/rand"
	"sort"

	"goprior/domain/mixture"

	"github.com/montanaflynn/stats"
)

// seedComponents builds the initial EM state: k-means++ center selection on
// the draws, a few Lloyd refinement passes, then per-cluster moments mapped
// to family parameters. A fixed generator seed yields identical seeding.
func seedComponents(data []float64, family mixture.Family, k int, rng *rand.Rand) ([]mixture.Component, error) {
	if k > len(data) {
		k = len(data)
	}
	varFloor := varianceFloor(data)

	if k == 1 {
		mean, _ := stats.Mean(data)
		variance, _ := stats.PopulationVariance(data)
		c, err := componentFromMoments(family, 1, mean, variance, varFloor)
		if err != nil {
			return nil, err
		}
		return []mixture.Component{c}, nil
	}

	centers := kmeansPlusPlus(data, k, rng)
	assign := make([]int, len(data))
	for pass := 0; pass < 10; pass++ {
		changed := false
		for i, x := range data {
			best, bestD := 0, math.Abs(x-centers[0])
			for j := 1; j < len(centers); j++ {
				if d := math.Abs(x - centers[j]); d < bestD {
					best, bestD = j, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		counts := make([]float64, len(centers))
		sums := make([]float64, len(centers))
		for i, x := range data {
			counts[assign[i]]++
			sums[assign[i]] += x
		}
		for j := range centers {
			if counts[j] > 0 {
				centers[j] = sums[j] / counts[j]
			}
		}
		if !changed && pass > 0 {
			break
		}
	}

	comps := make([]mixture.Component, 0, len(centers))
	for j := range centers {
		var cluster []float64
		for i, x := range data {
			if assign[i] == j {
				cluster = append(cluster, x)
			}
		}
		if len(cluster) == 0 {
			continue
		}
		mean, _ := stats.Mean(cluster)
		variance, _ := stats.PopulationVariance(cluster)
		w := float64(len(cluster)) / float64(len(data))
		c, err := componentFromMoments(family, w, mean, variance, varFloor)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return renormalize(comps), nil
}

// kmeansPlusPlus picks k initial centers with squared-distance weighting
func kmeansPlusPlus(data []float64, k int, rng *rand.Rand) []float64 {
	centers := make([]float64, 0, k)
	centers = append(centers, data[rng.Intn(len(data))])

	dist2 := make([]float64, len(data))
	for len(centers) < k {
		total := 0.0
		for i, x := range data {
			d := math.Inf(1)
			for _, c := range centers {
				if dd := math.Abs(x - c); dd < d {
					d = dd
				}
			}
			dist2[i] = d * d
			total += dist2[i]
		}
		if total <= 0 {
			// All remaining mass sits on the chosen centers; spread the rest
			// over the sample quantiles instead.
			return quantileCenters(data, k)
		}
		target := rng.Float64() * total
		acc := 0.0
		pick := len(data) - 1
		for i, d := range dist2 {
			acc += d
			if target < acc {
				pick = i
				break
			}
		}
		centers = append(centers, data[pick])
	}
	return centers
}

func quantileCenters(data []float64, k int) []float64 {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	centers := make([]float64, k)
	for j := 0; j < k; j++ {
		q := (2*float64(j) + 1) / (2 * float64(k))
		idx := int(q * float64(len(sorted)-1))
		centers[j] = sorted[idx]
	}
	return centers
}
