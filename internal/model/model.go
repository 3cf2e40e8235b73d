// Package model implements the sparse linear scorer the beam-search
// decoder uses to rank lattice nodes, and the weight persistence format
// described by the model file convention.
package model

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/nimbleseg/imeseg/internal/featurevector"
)

// Model is a sparse linear scorer: a map from feature key to weight.
// Missing keys contribute zero. It is read-only during decoding and
// single-writer during training.
type Model struct {
	Weights      featurevector.Sparse
	LearningRate float64
}

func New(learningRate float64) *Model {
	return &Model{
		Weights:      featurevector.New(),
		LearningRate: learningRate,
	}
}

// Score sums weight*value over the given feature pairs; missing weights
// contribute 0. This is the non-incremental form, used for scoring a
// flat feature set without a lattice node's cached prefix sum.
func (m *Model) Score(pairs []featurevector.Pair) float64 {
	return featurevector.DotProduct(m.Weights, pairs)
}

// Update applies delta*value*learning_rate to each (key, value) pair's
// weight. A delta of 1 strictly increases Score(pairs) for any pairs
// whose values are positive, given LearningRate > 0.
func (m *Model) Update(pairs []featurevector.Pair, delta float64) {
	if delta == 0 || len(pairs) == 0 {
		return
	}
	step := make(featurevector.Sparse, len(pairs))
	for _, p := range pairs {
		step[p.Key] += p.Value
	}
	m.Weights.UpdateAdd(step, delta*m.LearningRate)
}

// UpdateBatch applies a parallel batch of feature sets and deltas. The
// weight writes happen serially, in the given order, so that a batch's
// outcome never depends on goroutine scheduling.
func (m *Model) UpdateBatch(pairs [][]featurevector.Pair, deltas []float64) {
	if len(pairs) != len(deltas) {
		panic("model: UpdateBatch got mismatched pairs/deltas lengths")
	}
	for i := range pairs {
		m.Update(pairs[i], deltas[i])
	}
}

// Copy returns a model with a deep copy of the weight map, so changes to
// the copy never alias the original.
func (m *Model) Copy() *Model {
	return &Model{Weights: m.Weights.Copy(), LearningRate: m.LearningRate}
}

// Save writes one "key\tweight" line per entry, in the format described
// by the model file external interface.
func (m *Model) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for k, v := range m.Weights {
		if _, err := fmt.Fprintf(bw, "%s\t%v\n", k, v); err != nil {
			return fmt.Errorf("model: write failed: %w", err)
		}
	}
	return bw.Flush()
}

// Load reads a model file, accepting unknown feature keys verbatim and
// skipping malformed lines with a logged warning rather than aborting.
func Load(r io.Reader, learningRate float64) (*Model, error) {
	m := New(learningRate)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			log.Printf("model: skipping malformed line %d: %q", lineNo, line)
			continue
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			log.Printf("model: skipping malformed weight at line %d: %v", lineNo, err)
			continue
		}
		m.Weights[parts[0]] = weight
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("model: read failed: %w", err)
	}
	return m, nil
}
