// Package simhash fingerprints rendered documents so near-duplicate pages can
// be spotted within one crawl.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Fingerprint returns the 64-bit SimHash of the whitespace-separated words
// of text. Empty text fingerprints to 0.
func Fingerprint(text string) uint64 {
	return fromTokens(strings.Fields(text))
}

// FingerprintShingles hashes overlapping runs of n words instead of single
// words, so pages built from the same vocabulary in a different order still
// fingerprint apart. Texts shorter than n fall back to single words.
func FingerprintShingles(text string, n int) uint64 {
	words := strings.Fields(text)
	if n <= 1 || len(words) < n {
		return fromTokens(words)
	}

	shingles := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		shingles = append(shingles, strings.Join(words[i:i+n], " "))
	}
	return fromTokens(shingles)
}

func fromTokens(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var weights [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		for bit := range 64 {
			if sum>>bit&1 == 1 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var fp uint64
	for bit, w := range weights {
		if w > 0 {
			fp |= 1 << bit
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are at most threshold bits apart.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
