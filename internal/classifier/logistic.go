package classifier

import (
	"fmt"
	"math"
)

// logisticState is the frozen decision artifact: a binary or multinomial
// logistic regression.
type logisticState struct {
	Classes   []int       `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// LogisticModel maps feature vectors to a class and a probability
// distribution over its classes.
type LogisticModel struct {
	classes   []int
	coef      [][]float64
	intercept []float64
	dim       int
}

func newLogisticModel(state logisticState, dim int) (*LogisticModel, error) {
	if len(state.Classes) < 2 {
		return nil, fmt.Errorf("classifier needs at least two classes, got %d", len(state.Classes))
	}

	binary := len(state.Classes) == 2 && len(state.Coef) == 1
	if !binary && len(state.Coef) != len(state.Classes) {
		return nil, fmt.Errorf("classifier has %d coefficient rows for %d classes", len(state.Coef), len(state.Classes))
	}
	if len(state.Intercept) != len(state.Coef) {
		return nil, fmt.Errorf("classifier has %d intercepts for %d coefficient rows", len(state.Intercept), len(state.Coef))
	}
	for i, row := range state.Coef {
		if len(row) != dim {
			return nil, fmt.Errorf("coefficient row %d has %d features, vectorizer produces %d", i, len(row), dim)
		}
	}

	return &LogisticModel{
		classes:   state.Classes,
		coef:      state.Coef,
		intercept: state.Intercept,
		dim:       dim,
	}, nil
}

// Classes returns the class labels in probability order.
func (m *LogisticModel) Classes() []int {
	return append([]int(nil), m.classes...)
}

// Classify returns the predicted class and the probability of every class, in
// the order of Classes().
func (m *LogisticModel) Classify(v Vector) (int, []float64, error) {
	if v.Dim != m.dim {
		return 0, nil, fmt.Errorf("vector dimension %d does not match model dimension %d", v.Dim, m.dim)
	}

	var probs []float64
	if len(m.coef) == 1 {
		p := sigmoid(v.Dot(m.coef[0]) + m.intercept[0])
		probs = []float64{1 - p, p}
	} else {
		scores := make([]float64, len(m.coef))
		for i, row := range m.coef {
			scores[i] = v.Dot(row) + m.intercept[i]
		}
		probs = softmax(scores)
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return m.classes[best], probs, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
