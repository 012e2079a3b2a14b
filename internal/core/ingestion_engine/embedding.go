package ingestion_engine

import "strings"

// EmbeddingDim is the length of every retrieval vector.
const EmbeddingDim = 3

// CleanText collapses whitespace runs to single spaces and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Embed returns [mean, mean/2, mean/3] where mean is the average code point of text.
// The empty string embeds to the zero vector.
func Embed(text string) []float32 {
	var sum float64
	var n int
	for _, r := range text {
		sum += float64(r)
		n++
	}
	if n == 0 {
		return make([]float32, EmbeddingDim)
	}
	mean := sum / float64(n)
	return []float32{float32(mean), float32(mean / 2), float32(mean / 3)}
}
