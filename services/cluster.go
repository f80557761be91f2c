package services

import (
	"math"
	"math/rand"

	"car-ads/config"
	"car-ads/models"
)

type point [2]float64

// ClusterEngine groups listings by (year, price) and names each group after
// its mean year and price.
type ClusterEngine struct {
	cfg config.SegmentCalibration
}

// NewClusterEngine returns an engine configured by the segment calibration.
func NewClusterEngine(cal *config.Calibration) *ClusterEngine {
	return &ClusterEngine{cfg: cal.Segments}
}

// Assign sets Cluster on every listing and returns how many were clustered.
// Listings without both year and price, and every listing of a batch with
// fewer than two usable ones, get SegmentNone.
func (c *ClusterEngine) Assign(listings []*models.Listing) int {
	var usable []*models.Listing
	for _, l := range listings {
		l.Cluster = models.SegmentNone
		if l.Usable() {
			usable = append(usable, l)
		}
	}
	if len(usable) <= 1 {
		return 0
	}

	raw := make([]point, len(usable))
	for i, l := range usable {
		raw[i] = point{float64(*l.Year), *l.Price}
	}
	scaled := standardize(raw)

	k := c.cfg.K
	if d := distinct(scaled); d < k {
		k = d
	}
	groups := c.bestOf(scaled, k)

	sums := make([]point, k)
	counts := make([]int, k)
	for i, g := range groups {
		sums[g][0] += raw[i][0]
		sums[g][1] += raw[i][1]
		counts[g]++
	}
	labels := make([]string, k)
	for g := range labels {
		if counts[g] == 0 {
			continue
		}
		n := float64(counts[g])
		labels[g] = c.label(sums[g][0]/n, sums[g][1]/n)
	}

	for i, l := range usable {
		l.Cluster = labels[groups[i]]
	}
	return len(usable)
}

func (c *ClusterEngine) label(meanYear, meanPrice float64) string {
	switch {
	case meanYear >= c.cfg.NewMinYear && meanPrice > c.cfg.ExpensiveMinPrice:
		return models.SegmentNewExpensive
	case meanYear <= c.cfg.OldMaxYear:
		return models.SegmentOldCheap
	default:
		return models.SegmentMidRange
	}
}

// bestOf runs k-means from several k-means++ seedings drawn from one fixed
// seed and keeps the assignment with the lowest inertia.
func (c *ClusterEngine) bestOf(points []point, k int) []int {
	rng := rand.New(rand.NewSource(c.cfg.Seed))
	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < c.cfg.Restarts; r++ {
		groups, inertia := lloyd(points, seedCentroids(points, k, rng), c.cfg.MaxIterations)
		if inertia < bestInertia {
			best, bestInertia = groups, inertia
		}
	}
	return best
}

// seedCentroids is k-means++: each next centroid is drawn with probability
// proportional to its squared distance from the nearest chosen one.
func seedCentroids(points []point, k int, rng *rand.Rand) []point {
	centroids := []point{points[rng.Intn(len(points))]}
	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			dist[i] = nearest(p, centroids)
			total += dist[i]
		}
		if total == 0 {
			break
		}
		target := rng.Float64() * total
		pick := len(points) - 1
		for i, d := range dist {
			if target -= d; target < 0 {
				pick = i
				break
			}
		}
		centroids = append(centroids, points[pick])
	}
	return centroids
}

func lloyd(points []point, centroids []point, maxIter int) ([]int, float64) {
	groups := make([]int, len(points))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			g := closest(p, centroids)
			if iter == 0 || g != groups[i] {
				changed = true
			}
			groups[i] = g
		}
		if !changed {
			break
		}

		sums := make([]point, len(centroids))
		counts := make([]int, len(centroids))
		for i, p := range points {
			sums[groups[i]][0] += p[0]
			sums[groups[i]][1] += p[1]
			counts[groups[i]]++
		}
		for g := range centroids {
			// an emptied group keeps its previous centroid
			if counts[g] > 0 {
				n := float64(counts[g])
				centroids[g] = point{sums[g][0] / n, sums[g][1] / n}
			}
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += sqDist(p, centroids[groups[i]])
	}
	return groups, inertia
}

// standardize rescales each feature to zero mean and unit variance. A
// constant feature is only centred.
func standardize(points []point) []point {
	n := float64(len(points))
	var mean, std point
	for _, p := range points {
		mean[0] += p[0] / n
		mean[1] += p[1] / n
	}
	for _, p := range points {
		std[0] += (p[0] - mean[0]) * (p[0] - mean[0]) / n
		std[1] += (p[1] - mean[1]) * (p[1] - mean[1]) / n
	}
	for d := range std {
		std[d] = math.Sqrt(std[d])
		if std[d] == 0 {
			std[d] = 1
		}
	}

	out := make([]point, len(points))
	for i, p := range points {
		out[i] = point{(p[0] - mean[0]) / std[0], (p[1] - mean[1]) / std[1]}
	}
	return out
}

func distinct(points []point) int {
	seen := make(map[point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func closest(p point, centroids []point) int {
	best, bestDist := 0, math.Inf(1)
	for g, c := range centroids {
		if d := sqDist(p, c); d < bestDist {
			best, bestDist = g, d
		}
	}
	return best
}

func nearest(p point, centroids []point) float64 {
	return sqDist(p, centroids[closest(p, centroids)])
}

func sqDist(a, b point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
