// Package decoder implements the shift/reduce beam-search lattice
// decoder and the online structured-perceptron trainer with early
// update that scores it.
package decoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/nimbleseg/imeseg/internal/dict"
	"github.com/nimbleseg/imeseg/internal/featurevector"
	"github.com/nimbleseg/imeseg/internal/lattice"
	"github.com/nimbleseg/imeseg/internal/model"
)

var (
	// ErrDecodeFailed is returned when a step produces an empty beam;
	// the caller decides whether to retry with a larger beam or abort.
	ErrDecodeFailed = errors.New("decoder: beam emptied before decode completed")
	// ErrNoOracle means a training sample produced no surviving oracle
	// path even after retrying with a doubled beam; callers skip it.
	ErrNoOracle = errors.New("decoder: no oracle path found for training sample")
)

// Decoder drives shift/reduce lattice expansion over a Dictionary,
// scoring candidates with a Model. It holds no per-decode state itself,
// so one Decoder may service concurrent decodes over an immutable
// Dictionary and Model.
type Decoder struct {
	Dict  *dict.Dictionary
	Model *model.Model
}

func New(d *dict.Dictionary, m *model.Model) *Decoder {
	return &Decoder{Dict: d, Model: m}
}

// buildNode is Model.compute_score plus the node's own
// prev_word threading: local_score accumulates along the ancestor
// chain, and global features contribute to this node's own score only.
func (d *Decoder) buildNode(prev *lattice.Node, word *dict.Word, codePos, textPos, stepPos int) *lattice.Node {
	n := &lattice.Node{Prev: prev, CodePos: codePos, TextPos: textPos, Word: word}
	if prev != nil {
		if prev.Word != nil {
			n.PrevWord = prev
		} else {
			n.PrevWord = prev.PrevWord
		}
	}

	var localKeys []string
	if word != nil {
		if word.Text != "" {
			localKeys = append(localKeys, "unigram:"+word.Text)
		}
		if n.PrevWord != nil {
			localKeys = append(localKeys, "bigram:"+n.PrevWord.Word.Text+"_"+word.Text)
		}
	}
	local := featurevector.Ones(localKeys)
	n.LocalFeatures = local

	var globalKeys []string
	if pending := stepPos - codePos; pending > 0 {
		globalKeys = append(globalKeys, fmt.Sprintf("code_len:%d", pending))
	}
	global := featurevector.Ones(globalKeys)
	n.GlobalFeatures = global

	prevLocal := 0.0
	if prev != nil {
		prevLocal = prev.LocalScore
	}
	n.LocalScore = prevLocal + d.Model.Score(local)
	n.ScoreVal = n.LocalScore + d.Model.Score(global)
	return n
}

// advance performs one shift/reduce step at position pos, given the
// previous beam, pushing every admissible child onto the lattice's
// top-k heap for this step.
func (d *Decoder) advance(lat *lattice.Lattice, code string, text *string, pos int) {
	lat.BeginStep()
	prevBeam := lat.Beam(pos - 1)
	maxCodeLen := d.Dict.MaxCodeLen()
	for _, prev := range prevBeam {
		if pos < len(code) && pos-prev.CodePos < maxCodeLen {
			child := d.buildNode(prev, nil, prev.CodePos, prev.TextPos, pos)
			lat.Emplace(child)
		}

		span := code[prev.CodePos:pos]
		words := d.Dict.Find(span)
		for i := range words {
			w := &words[i]
			newTextPos := prev.TextPos + len(w.Text)
			if text != nil {
				t := *text
				if newTextPos > len(t) || t[prev.TextPos:newTextPos] != w.Text {
					continue
				}
			}
			child := d.buildNode(prev, w, pos, newTextPos, pos)
			lat.Emplace(child)
		}
	}
	lat.EndStep()
}

// endDecode pushes one virtual EOS node per predecessor that fully
// consumed the code (and text, if constrained), tagged with the
// sentinel Word so a bigram:<last-word>_<eos> feature can fire.
func (d *Decoder) endDecode(lat *lattice.Lattice, code string, text *string) {
	penultimate := lat.Beam(lat.NumSteps() - 1)
	lat.BeginStep()
	for _, prev := range penultimate {
		if prev.CodePos != len(code) {
			continue
		}
		if text != nil && prev.TextPos != len(*text) {
			continue
		}
		eos := d.buildNode(prev, dict.Sentinel(), prev.CodePos, prev.TextPos, prev.CodePos)
		lat.Emplace(eos)
	}
	lat.EndStep()
}

// Decode expands the lattice across the full code string, shift/reduce
// step by step. When text is non-nil, reduce transitions are constrained
// to prefixes of *text (oracle decoding); when nil, decoding is free.
// Decode fails, returning ErrDecodeFailed, as soon as any step's beam
// empties.
func (d *Decoder) Decode(code string, text *string, beamSize int) (*lattice.Lattice, error) {
	lat := lattice.New()
	lat.Init(len(code), beamSize)
	lat.BeginRoot(true)

	for pos := 1; pos <= len(code); pos++ {
		d.advance(lat, code, text, pos)
		if len(lat.Back()) == 0 {
			return lat, ErrDecodeFailed
		}
	}
	d.endDecode(lat, code, text)
	if len(lat.Back()) == 0 {
		return lat, ErrDecodeFailed
	}
	return lat, nil
}

// Candidate is one ranked decode result: a candidate text and its
// softmax probability over the final beam.
type Candidate struct {
	Text        string
	Probability float64
	Node        *lattice.Node
}

// softmax computes exp(score_i)/sum_j exp(score_j) with a max-shift for
// numerical stability; it does not allocate beyond the returned slice.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(s - max)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

// Predict runs unconstrained decoding and returns the top-k paths with
// their softmax probabilities.
func (d *Decoder) Predict(code string, k, beamSize int) ([]Candidate, error) {
	lat, err := d.Decode(code, nil, beamSize)
	if err != nil {
		return nil, err
	}
	beam := lat.Back()
	scores := make([]float64, len(beam))
	for i, n := range beam {
		scores[i] = n.ScoreVal
	}
	probs := softmax(scores)

	top := lat.GetPaths(k)
	out := make([]Candidate, len(top))
	for i, n := range top {
		out[i] = Candidate{Text: n.Text(), Probability: probs[i], Node: n}
	}
	return out, nil
}

// PredictTarget locates targetText among the unconstrained top-k
// candidates. On a miss, it runs a text-constrained decode to score the
// target directly and reports its probability against the free beam's
// mass, with rank reported as beamSize (the "outside beam" sentinel).
func (d *Decoder) PredictTarget(code, targetText string, beamSize int) (rank int, probability float64, err error) {
	lat, err := d.Decode(code, nil, beamSize)
	if err != nil {
		return 0, 0, err
	}
	beam := lat.GetPaths(len(lat.Back()))
	scores := make([]float64, len(beam))
	for i, n := range beam {
		scores[i] = n.ScoreVal
	}
	for i, n := range beam {
		if n.Text() == targetText {
			probs := softmax(scores)
			return i, probs[i], nil
		}
	}

	targetLat, err := d.Decode(code, &targetText, beamSize)
	if err != nil {
		return 0, 0, err
	}
	targetScore := targetLat.Back()[0].ScoreVal

	max := targetScore
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	sumExp := math.Exp(targetScore - max)
	for _, s := range scores {
		sumExp += math.Exp(s - max)
	}
	probability = math.Exp(targetScore-max) / sumExp
	return beamSize, probability, nil
}
