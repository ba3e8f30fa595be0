package classifier

// Classifier is the frozen sentiment model as seen by the prediction service.
type Classifier interface {
	Transform(text string) Vector
	Classify(v Vector) (int, []float64, error)
	Version() string
}

// Model pairs a vectorizer with the decision model trained on its features.
// A Model never changes after it is loaded, so it can be shared freely.
type Model struct {
	version    string
	vectorizer *Vectorizer
	decision   *LogisticModel
}

// NewModel builds a model from in-memory artifacts, mainly for tests and
// tooling that already hold decoded state.
func NewModel(version string, vocabulary map[string]int, idf []float64, classes []int, coef [][]float64, intercept []float64) (*Model, error) {
	vectorizer, err := newVectorizer(vectorizerState{
		Vocabulary: vocabulary,
		IDF:        idf,
		Lowercase:  true,
		Norm:       "l2",
	})
	if err != nil {
		return nil, err
	}
	decision, err := newLogisticModel(logisticState{
		Classes:   classes,
		Coef:      coef,
		Intercept: intercept,
	}, vectorizer.Dim())
	if err != nil {
		return nil, err
	}
	return &Model{version: version, vectorizer: vectorizer, decision: decision}, nil
}

func (m *Model) Version() string {
	return m.version
}

// Dim returns the feature dimension shared by both artifacts.
func (m *Model) Dim() int {
	return m.vectorizer.Dim()
}

// Classes returns the class values in the order Classify reports
// probabilities.
func (m *Model) Classes() []int {
	return m.decision.Classes()
}

func (m *Model) Transform(text string) Vector {
	return m.vectorizer.Transform(text)
}

func (m *Model) Classify(v Vector) (int, []float64, error) {
	return m.decision.Classify(v)
}
