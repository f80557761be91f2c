package classifier

// LinearModel is a fitted separating hyperplane w·x + b. Positive scores
// mean relevant.
type LinearModel struct {
	weights Vector
	bias    float64
}

// FitCentroids fits the hyperplane halfway between the two class centroids:
// w = c+ - c-, b = (|c-|² - |c+|²) / 2. It needs at least one example of each
// class.
func FitCentroids(positive, negative []Vector) (*LinearModel, error) {
	if len(positive) == 0 || len(negative) == 0 {
		return nil, ErrSingleClass
	}

	pos := centroid(positive)
	neg := centroid(negative)

	w := make(Vector, len(pos)+len(neg))
	for i, x := range pos {
		w[i] += x
	}
	for i, x := range neg {
		w[i] -= x
	}

	return &LinearModel{
		weights: w,
		bias:    (neg.Dot(neg) - pos.Dot(pos)) / 2,
	}, nil
}

// Score returns the signed distance-like decision value for x.
func (m *LinearModel) Score(x Vector) float64 {
	return m.weights.Dot(x) + m.bias
}

func centroid(vs []Vector) Vector {
	c := make(Vector)
	for _, v := range vs {
		for i, x := range v {
			c[i] += x
		}
	}
	n := float64(len(vs))
	for i := range c {
		c[i] /= n
	}
	return c
}
