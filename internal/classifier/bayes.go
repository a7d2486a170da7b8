package classifier

import (
	"math"
	"sort"
)

// model is a fitted term-frequency-weighted multinomial naive Bayes
// classifier over two classes (0 = legitimate, 1 = phishing).
//
// The vocabulary is capped by document frequency, terms are weighted with
// smoothed inverse document frequency, and class-conditional term
// likelihoods use Laplace smoothing. All fields are exported for the JSON
// artifact; a model is never mutated after fitting.
type model struct {
	Vocabulary    map[string]int `json:"vocabulary"`
	IDF           []float64      `json:"idf"`
	ClassLogPrior [2]float64     `json:"class_log_prior"`
	TermLogProb   [2][]float64   `json:"term_log_prob"`
}

// fitModel trains a model from tokenized documents and their labels.
// Callers guarantee len(docs) == len(labels) and both classes present.
func fitModel(docs [][]string, labels []int, maxFeatures int) *model {
	n := len(docs)

	// Document frequency per term
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	// Keep the most frequent terms, ties broken alphabetically so two
	// fits over the same corpus build the same vocabulary
	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if docFreq[terms[i]] != docFreq[terms[j]] {
			return docFreq[terms[i]] > docFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxFeatures > 0 && len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		// Smoothed IDF, never zero
		idf[i] = math.Log(float64(1+n)/float64(1+docFreq[term])) + 1.0
	}

	// Accumulate weighted term mass per class
	var classCount [2]int
	var termMass [2][]float64
	termMass[0] = make([]float64, len(terms))
	termMass[1] = make([]float64, len(terms))
	var classMass [2]float64

	for d, doc := range docs {
		label := labels[d]
		classCount[label]++
		for _, term := range doc {
			idx, ok := vocabulary[term]
			if !ok {
				continue
			}
			w := idf[idx]
			termMass[label][idx] += w
			classMass[label] += w
		}
	}

	m := &model{
		Vocabulary: vocabulary,
		IDF:        idf,
	}

	vocabSize := float64(len(terms))
	for c := 0; c < 2; c++ {
		m.ClassLogPrior[c] = math.Log(float64(classCount[c]) / float64(n))
		m.TermLogProb[c] = make([]float64, len(terms))
		for i := range terms {
			// Laplace smoothing keeps unseen terms finite
			m.TermLogProb[c][i] = math.Log((termMass[c][i] + 1.0) / (classMass[c] + vocabSize))
		}
	}

	return m
}

// predict returns the label and phishing probability for tokenized text.
// Out-of-vocabulary terms carry no weight.
func (m *model) predict(tokens []string) (int, float64) {
	var logLikelihood [2]float64
	logLikelihood[0] = m.ClassLogPrior[0]
	logLikelihood[1] = m.ClassLogPrior[1]

	for _, term := range tokens {
		idx, ok := m.Vocabulary[term]
		if !ok {
			continue
		}
		w := m.IDF[idx]
		logLikelihood[0] += w * m.TermLogProb[0][idx]
		logLikelihood[1] += w * m.TermLogProb[1][idx]
	}

	// Convert the two log scores into a phishing probability
	probability := 1.0 / (1.0 + math.Exp(logLikelihood[0]-logLikelihood[1]))

	label := 0
	if probability >= 0.5 {
		label = 1
	}
	return label, probability
}

// valid reports whether a loaded model is internally consistent
func (m *model) valid() bool {
	if m.Vocabulary == nil {
		return false
	}
	size := len(m.Vocabulary)
	return len(m.IDF) == size &&
		len(m.TermLogProb[0]) == size &&
		len(m.TermLogProb[1]) == size
}
