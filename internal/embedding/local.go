/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	// LocalDimensions is the vector size of the local hashing embedder
	LocalDimensions = 256
)

// LocalProvider is a deterministic bag-of-words hashing embedder. It
// needs no external service, so it serves offline smoke testing and
// the test suite. Identical texts embed identically; texts sharing
// tokens score proportionally. It is NOT a semantic model and must not
// be mixed with vectors from a real provider in the same index.
type LocalProvider struct {
	dimensions int
}

// NewLocalProvider creates a local hashing embedder
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{dimensions: LocalDimensions}
}

// Embed hashes each token into a fixed-size vector and normalizes it
func (p *LocalProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	vec := make([]float32, p.dimensions)
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(p.dimensions)]++
	}

	// L2-normalize so cosine similarity falls in [0, 1]
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// Dimensions returns the fixed local vector size
func (p *LocalProvider) Dimensions() int {
	return p.dimensions
}

// ModelName returns "fnv-bow"
func (p *LocalProvider) ModelName() string {
	return "fnv-bow"
}

// ProviderName returns "local"
func (p *LocalProvider) ProviderName() string {
	return "local"
}
