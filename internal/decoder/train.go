package decoder

import (
	"math"

	"github.com/nimbleseg/imeseg/internal/featurevector"
	"github.com/nimbleseg/imeseg/internal/lattice"
)

// Outcome summarizes what happened when training on one sample, for
// per-epoch metrics aggregation.
type Outcome struct {
	Precision   bool    // the top-ranked path in the tracked beam was an oracle path
	EarlyUpdate bool    // every oracle path fell out of the beam, so the search stopped before the final step
	Loss        float64 // -log(p_label)
}

// Gradient is the result of ComputeGradient: a set of per-node feature
// vectors and perceptron deltas, plus the Outcome to report. It reads
// the model's weights but never writes them, so many Gradients may be
// computed concurrently against one shared, read-only Model.
type Gradient struct {
	Features [][]featurevector.Pair
	Deltas   []float64
	Outcome  Outcome
}

// ComputeGradient runs oracle decoding, tracked decoding with early
// update, and the softmax gradient computation for one training sample.
// It returns ErrNoOracle if no oracle path survives even after
// retrying with a doubled beam; callers should skip the sample.
func (d *Decoder) ComputeGradient(code, text string, beamSize int) (*Gradient, error) {
	oracleLat, err := d.Decode(code, &text, beamSize)
	if err != nil {
		oracleLat, err = d.Decode(code, &text, beamSize*2)
		if err != nil {
			return nil, ErrNoOracle
		}
	}
	oraclePaths := append([]*lattice.Node(nil), oracleLat.Back()...)

	tracked := lattice.New()
	tracked.Init(len(code), beamSize)
	root := tracked.BeginRoot(true)

	alive := make([]bool, len(oraclePaths))
	ancestor := make([]*lattice.Node, len(oraclePaths))
	paths := make([][]*lattice.Node, len(oraclePaths))
	for i, p := range oraclePaths {
		alive[i] = true
		ancestor[i] = root
		paths[i] = p.Path()
	}

	finalStep := len(code) + 2
	earlyUpdatePos := -1
	var fallout *lattice.Node

	for pos := 1; pos <= len(code)+1; pos++ {
		aliveBefore := append([]bool(nil), alive...)
		if pos <= len(code) {
			d.advance(tracked, code, nil, pos)
		} else {
			d.endDecode(tracked, code, nil)
		}
		curBeam := tracked.Back()

		anyMatched := false
		for i, wasAlive := range aliveBefore {
			if !wasAlive {
				continue
			}
			path := paths[i]
			if pos >= len(path) {
				alive[i] = false
				continue
			}
			oracleNode := path[pos]
			matched := false
			for _, n := range curBeam {
				if n.Prev == ancestor[i] && n.Word == oracleNode.Word {
					ancestor[i] = n
					matched = true
					break
				}
			}
			if matched {
				anyMatched = true
			} else {
				alive[i] = false
			}
		}

		if !anyMatched {
			fallIdx := -1
			for i, wasAlive := range aliveBefore {
				if wasAlive {
					fallIdx = i
					break
				}
			}
			path := paths[fallIdx]
			oracleNode := path[pos]
			stepPos := pos
			if pos > len(code) {
				stepPos = oracleNode.CodePos
			}
			mirrored := d.buildNode(ancestor[fallIdx], oracleNode.Word, oracleNode.CodePos, oracleNode.TextPos, stepPos)
			tracked.AppendToBack(mirrored)
			fallout = mirrored
			earlyUpdatePos = pos
			break
		}
	}
	if earlyUpdatePos == -1 {
		earlyUpdatePos = finalStep
	}

	finalBeam := tracked.Back()
	var labelNode *lattice.Node
	if fallout != nil {
		labelNode = fallout
	} else {
		for i, p := range paths {
			_ = p
			if alive[i] {
				labelNode = ancestor[i]
				break
			}
		}
	}

	label := -1
	for i, n := range finalBeam {
		if n == labelNode {
			label = i
			break
		}
	}
	if label == -1 {
		return nil, ErrNoOracle
	}

	scores := make([]float64, len(finalBeam))
	for i, n := range finalBeam {
		scores[i] = n.ScoreVal
	}
	probs := softmax(scores)

	deltas := make([]float64, len(finalBeam))
	feats := make([][]featurevector.Pair, len(finalBeam))
	for i, n := range finalBeam {
		target := 0.0
		if i == label {
			target = 1.0
		}
		deltas[i] = target - probs[i]
		feats[i] = fullFeatures(n)
	}

	return &Gradient{
		Features: feats,
		Deltas:   deltas,
		Outcome: Outcome{
			Precision:   label == 0,
			EarlyUpdate: earlyUpdatePos < finalStep,
			Loss:        -math.Log(math.Max(probs[label], 1e-12)),
		},
	}, nil
}

// fullFeatures enumerates a node's complete feature set: the local
// features of every ancestor on its path plus its own global features.
func fullFeatures(n *lattice.Node) []featurevector.Pair {
	var feats []featurevector.Pair
	for cur := n; cur != nil; cur = cur.Prev {
		feats = append(feats, cur.LocalFeatures...)
	}
	feats = append(feats, n.GlobalFeatures...)
	return feats
}

// Apply writes a Gradient's per-node updates into the model. Call
// serially, in input order, after any parallel ComputeGradient phase.
func (d *Decoder) Apply(g *Gradient) {
	d.Model.UpdateBatch(g.Features, g.Deltas)
}
