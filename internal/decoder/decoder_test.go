package decoder

import (
	"bytes"
	"math"
	"testing"

	"github.com/nimbleseg/imeseg/internal/dict"
	"github.com/nimbleseg/imeseg/internal/lattice"
	"github.com/nimbleseg/imeseg/internal/model"
)

func newTestDict(entries ...[2]string) *dict.Dictionary {
	d := dict.New()
	for _, e := range entries {
		d.Add(e[0], e[1])
	}
	return d
}

// Two distinct paths reach "你好" with equal zero-weight scores.
func TestDecodeFindsBothSegmentationsOfNihao(t *testing.T) {
	d := newTestDict([2]string{"ni", "你"}, [2]string{"hao", "好"}, [2]string{"nihao", "你好"})
	dec := New(d, model.New(0.01))

	lat, err := dec.Decode("nihao", nil, 5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var matches int
	for _, n := range lat.Back() {
		if n.Text() == "你好" {
			matches++
			if n.ScoreVal != 0 {
				t.Errorf("expected zero score at zero weights, got %v", n.ScoreVal)
			}
		}
	}
	if matches < 2 {
		t.Fatalf("expected at least 2 paths spelling 你好, found %d", matches)
	}
}

// A code with no valid reduction across a gap fails to decode.
func TestDecodeFailsWhenNoReductionCoversGap(t *testing.T) {
	d := newTestDict([2]string{"ab", "A"}, [2]string{"cd", "B"})
	dec := New(d, model.New(0.01))

	lat, err := dec.Decode("abcd", nil, 5)
	if err != nil {
		t.Fatalf("Decode(abcd): %v", err)
	}
	full := 0
	for _, n := range lat.Back() {
		if n.Text() == "AB" {
			full++
		}
	}
	if full != 1 {
		t.Fatalf("expected exactly one full path AB, got %d", full)
	}

	if _, err := dec.Decode("abcxd", nil, 5); err != ErrDecodeFailed {
		t.Fatalf("expected ErrDecodeFailed for abcxd, got %v", err)
	}
}

// Every node's score is local_score + sum(weight*value) over global features,
// and local_score accumulates additively along the path.
func TestScoreInvariant(t *testing.T) {
	d := newTestDict([2]string{"a", "X"}, [2]string{"b", "Y"})
	m := model.New(1.0)
	m.Weights["unigram:X"] = 2.0
	m.Weights["unigram:Y"] = 3.0
	dec := New(d, m)

	lat, err := dec.Decode("ab", nil, 5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var rear *lattice.Node
	for _, n := range lat.Back() {
		if n.Text() == "XY" {
			rear = n
		}
	}
	if rear == nil {
		t.Fatal("expected path XY in final beam")
	}
	if rear.LocalScore != 5.0 {
		t.Fatalf("local_score = %v, want 5.0 (2.0 + 3.0)", rear.LocalScore)
	}
}

// Softmax over any non-empty beam sums to 1.
func TestSoftmaxSumsToOne(t *testing.T) {
	probs := softmax([]float64{0.5, -1.2, 3.0, 0.0})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("softmax does not sum to 1: %v (sum=%v)", probs, sum)
	}
}

// Training on a sample whose oracle is already top-ranked gives label 0
// and updates unigram:你好 by the expected softmax gradient.
func TestTrainSampleLabelAndGradient(t *testing.T) {
	d := newTestDict([2]string{"ni", "你"}, [2]string{"hao", "好"}, [2]string{"nihao", "你好"})
	m := model.New(1.0)
	dec := New(d, m)

	g, err := dec.ComputeGradient("nihao", "你好", 5)
	if err != nil {
		t.Fatalf("ComputeGradient: %v", err)
	}
	if !g.Outcome.Precision {
		t.Fatalf("expected the tracked beam's top path to be an oracle path at zero weights")
	}
	dec.Apply(g)

	w, ok := m.Weights["unigram:你好"]
	if !ok {
		t.Fatalf("expected unigram:你好 to receive a nonzero update")
	}
	if w <= 0 {
		t.Fatalf("unigram:你好 weight = %v, want > 0 (reward exceeds competing probability mass)", w)
	}
}

// With beam_size=1 and a competing single-char path ranked ahead of
// the oracle, training must trigger early-update fallout.
func TestTrainingEarlyUpdateOnNarrowBeam(t *testing.T) {
	d := dict.New()
	d.Add("x", "A")
	d.Add("x", "B")
	m := model.New(1.0)
	m.Weights["unigram:A"] = 10.0
	dec := New(d, m)

	g, err := dec.ComputeGradient("x", "B", 1)
	if err != nil {
		t.Fatalf("ComputeGradient: %v", err)
	}
	if !g.Outcome.EarlyUpdate {
		t.Fatalf("expected early update when the oracle cannot survive a beam of size 1")
	}
}

// Repeated training on a sample pushes its target text to the top of
// the unconstrained beam.
func TestRepeatedTrainingConvergesToTarget(t *testing.T) {
	d := newTestDict(
		[2]string{"ce", "测"}, [2]string{"shi", "试"}, [2]string{"ceshi", "测试"},
	)
	m := model.New(0.5)
	dec := New(d, m)

	code, text := "ceshiceshi", "测试测试"
	for i := 0; i < 50; i++ {
		g, err := dec.ComputeGradient(code, text, 20)
		if err != nil {
			t.Fatalf("iteration %d: ComputeGradient: %v", i, err)
		}
		dec.Apply(g)
	}

	candidates, err := dec.Predict(code, 1, 20)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if candidates[0].Text != text {
		t.Fatalf("top prediction = %q, want %q", candidates[0].Text, text)
	}
}

// A save/load round trip through the model file format reproduces a
// trained decoder's top prediction.
func TestSaveLoadPreservesTopPrediction(t *testing.T) {
	d := newTestDict([2]string{"ce", "测"}, [2]string{"shi", "试"}, [2]string{"ceshi", "测试"})
	m := model.New(0.5)
	dec := New(d, m)
	code, text := "ceshiceshi", "测试测试"
	for i := 0; i < 50; i++ {
		g, err := dec.ComputeGradient(code, text, 20)
		if err != nil {
			t.Fatalf("ComputeGradient: %v", err)
		}
		dec.Apply(g)
	}

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := model.Load(&buf, 0.5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	freshDec := New(d, loaded)
	candidates, err := freshDec.Predict(code, 1, 20)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if candidates[0].Text != text {
		t.Fatalf("top prediction after reload = %q, want %q", candidates[0].Text, text)
	}
}
