package services

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// tfidfVector is a sparse tf-idf document vector keyed by vocabulary index.
type tfidfVector map[int]float64

// tfidfModel holds the vocabulary and per-document vectors produced by a
// single fit over a document set. Vectors are L2-normalized so cosine
// similarity reduces to a dot product.
type tfidfModel struct {
	vocabulary []string
	termIndex  map[string]int
	vectors    []tfidfVector
}

// tokenize lowercases the input and splits it into runs of two or more
// letters or digits, dropping English stop words. Underscores are treated
// as separators, so "binary_search" tokenizes as two tokens. Single
// characters and punctuation carry no signal.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 2 {
			token := current.String()
			if !englishStopWords[token] {
				tokens = append(tokens, token)
			}
		}
		current.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// fitTfidf builds a tf-idf model over the given documents using smoothed
// inverse document frequency: idf(t) = ln((1+n)/(1+df(t))) + 1. Each
// document vector is L2-normalized.
func fitTfidf(documents []string) *tfidfModel {
	docTokens := make([][]string, len(documents))
	termIndex := make(map[string]int)

	for i, doc := range documents {
		docTokens[i] = tokenize(doc)
		for _, token := range docTokens[i] {
			if _, ok := termIndex[token]; !ok {
				termIndex[token] = -1 // placeholder, assigned after sort
			}
		}
	}

	// Assign indices in sorted vocabulary order for deterministic output
	vocabulary := make([]string, 0, len(termIndex))
	for term := range termIndex {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)
	for i, term := range vocabulary {
		termIndex[term] = i
	}

	// Document frequency per term
	docFreq := make([]int, len(vocabulary))
	for _, tokens := range docTokens {
		seen := make(map[int]bool)
		for _, token := range tokens {
			idx := termIndex[token]
			if !seen[idx] {
				seen[idx] = true
				docFreq[idx]++
			}
		}
	}

	n := float64(len(documents))
	idf := make([]float64, len(vocabulary))
	for i, df := range docFreq {
		idf[i] = math.Log((1+n)/(1+float64(df))) + 1
	}

	vectors := make([]tfidfVector, len(documents))
	for i, tokens := range docTokens {
		vec := make(tfidfVector)
		for _, token := range tokens {
			idx := termIndex[token]
			vec[idx] += idf[idx]
		}

		// L2 normalize
		var norm float64
		for _, w := range vec {
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx, w := range vec {
				vec[idx] = w / norm
			}
		}
		vectors[i] = vec
	}

	return &tfidfModel{
		vocabulary: vocabulary,
		termIndex:  termIndex,
		vectors:    vectors,
	}
}

// cosineSimilarity returns the cosine similarity of two normalized sparse
// vectors. Iterates the smaller vector for efficiency.
func cosineSimilarity(a, b tfidfVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for idx, w := range a {
		if other, ok := b[idx]; ok {
			dot += w * other
		}
	}
	return dot
}

// termWeightSums returns the summed tf-idf weight of each vocabulary term
// across all document vectors.
func (m *tfidfModel) termWeightSums() []float64 {
	sums := make([]float64, len(m.vocabulary))
	for _, vec := range m.vectors {
		for idx, w := range vec {
			sums[idx] += w
		}
	}
	return sums
}
