package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Vector is a sparse feature vector of fixed dimension. Indices are sorted
// ascending and unique.
type Vector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NNZ returns the number of non-zero entries
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// Dot computes the inner product with a dense weight row.
func (v Vector) Dot(weights []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		sum += v.Values[i] * weights[idx]
	}
	return sum
}

// vectorizerState is the frozen TF-IDF artifact as exported by the training job.
type vectorizerState struct {
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	NgramRange  [2]int         `json:"ngram_range"`
	Lowercase   bool           `json:"lowercase"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
}

// Vectorizer turns normalized text into TF-IDF vectors. It is immutable after
// construction and safe for concurrent use.
type Vectorizer struct {
	vocabulary  map[string]int
	idf         []float64
	minN, maxN  int
	lowercase   bool
	sublinearTF bool
	norm        string
}

func newVectorizer(state vectorizerState) (*Vectorizer, error) {
	if len(state.IDF) == 0 {
		return nil, fmt.Errorf("vectorizer has empty idf table")
	}
	if len(state.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer has empty vocabulary")
	}
	for term, idx := range state.Vocabulary {
		if idx < 0 || idx >= len(state.IDF) {
			return nil, fmt.Errorf("vocabulary term %q has index %d outside [0,%d)", term, idx, len(state.IDF))
		}
	}

	minN, maxN := state.NgramRange[0], state.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("invalid ngram range [%d,%d]", minN, maxN)
	}

	switch state.Norm {
	case "", "l1", "l2":
	default:
		return nil, fmt.Errorf("unsupported norm %q", state.Norm)
	}

	return &Vectorizer{
		vocabulary:  state.Vocabulary,
		idf:         state.IDF,
		minN:        minN,
		maxN:        maxN,
		lowercase:   state.Lowercase,
		sublinearTF: state.SublinearTF,
		norm:        state.Norm,
	}, nil
}

// Dim returns the dimension of the vectors this vectorizer produces.
func (v *Vectorizer) Dim() int {
	return len(v.idf)
}

// Transform maps text to its TF-IDF vector. Terms that are not in the
// vocabulary are ignored, so the result may have no non-zero entries.
func (v *Vectorizer) Transform(text string) Vector {
	if v.lowercase {
		text = strings.ToLower(text)
	}

	counts := make(map[int]float64)
	for _, term := range v.ngrams(tokenize(text)) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	out := Vector{
		Dim:     v.Dim(),
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		out.Indices = append(out.Indices, idx)
	}
	sort.Ints(out.Indices)

	for _, idx := range out.Indices {
		tf := counts[idx]
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		out.Values = append(out.Values, tf*v.idf[idx])
	}

	normalize(out.Values, v.norm)
	return out
}

func (v *Vectorizer) ngrams(tokens []string) []string {
	if v.minN == 1 && v.maxN == 1 {
		return tokens
	}
	var terms []string
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// tokenize splits text into runs of word characters at least two runes long.
func tokenize(text string) []string {
	var tokens []string
	var current []rune
	flush := func() {
		if len(current) >= 2 {
			tokens = append(tokens, string(current))
		}
		current = current[:0]
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func normalize(values []float64, norm string) {
	var total float64
	switch norm {
	case "l2":
		for _, x := range values {
			total += x * x
		}
		total = math.Sqrt(total)
	case "l1":
		for _, x := range values {
			total += math.Abs(x)
		}
	default:
		return
	}
	if total == 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
