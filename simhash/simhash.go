// Package simhash detects near-identical gazette publications. The same
// Nota de Empenho is sometimes republished under a new link with only a
// rectification line changed; a run can optionally keep the first copy.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"sync"
	"unicode"
)

// shingleSize is the number of consecutive words hashed together.
const shingleSize = 2

// Fingerprint computes a 64-bit SimHash of text. Words are lowercased and
// stripped of surrounding punctuation, then hashed (FNV-64a) as overlapping
// shingles of shingleSize words.
func Fingerprint(text string) uint64 {
	words := normalize(text)
	if len(words) == 0 {
		return 0
	}

	tokens := makeShingles(words, shingleSize)
	if len(tokens) == 0 {
		tokens = words
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

func normalize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '/' && r != '$'
		})
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// makeShingles creates n-gram shingles from a slice of tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}

	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], " "))
	}
	return shingles
}

// Index remembers fingerprints of documents already accepted in a run.
// It is safe for concurrent use.
type Index struct {
	mu        sync.Mutex
	threshold int
	keys      []string
	prints    []uint64
}

// NewIndex returns an Index that treats fingerprints within threshold bits
// as duplicates.
func NewIndex(threshold int) *Index {
	return &Index{threshold: threshold}
}

// Check fingerprints text. If an earlier document is within the threshold
// it returns that document's key and true; otherwise text is recorded under
// key and Check returns "", false. Empty text is never a duplicate.
func (ix *Index) Check(key, text string) (string, bool) {
	fp := Fingerprint(text)
	if fp == 0 && strings.TrimSpace(text) == "" {
		return "", false
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, p := range ix.prints {
		if Similar(fp, p, ix.threshold) {
			return ix.keys[i], true
		}
	}
	ix.keys = append(ix.keys, key)
	ix.prints = append(ix.prints, fp)
	return "", false
}

// Len reports how many documents are recorded.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.prints)
}
