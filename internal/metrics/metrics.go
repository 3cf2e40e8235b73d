// Package metrics aggregates per-epoch training and evaluation
// counters: success rate, precision, early-update rate, and mean
// loss, plus the corresponding evaluation-time accuracy figures.
package metrics

import "github.com/nimbleseg/imeseg/internal/decoder"

// Epoch accumulates counters across one pass over a training set.
type Epoch struct {
	Samples      int
	Skipped      int
	Precise      int
	EarlyUpdates int
	LossSum      float64
}

// Record folds one sample's training outcomes into the epoch totals.
func (e *Epoch) Record(o decoder.SampleOutcome) {
	e.Samples++
	if o.Skipped {
		e.Skipped++
		return
	}
	if o.Precision {
		e.Precise++
	}
	if o.EarlyUpdate {
		e.EarlyUpdates++
	}
	e.LossSum += o.Loss
}

// Scored is the number of samples that produced a gradient, i.e. were
// not skipped for lack of an oracle path.
func (e *Epoch) Scored() int {
	return e.Samples - e.Skipped
}

// PrecisionRate is the fraction of scored samples whose tracked-decode
// label was the top-ranked path (invariant on oracle rank).
func (e *Epoch) PrecisionRate() float64 {
	if e.Scored() == 0 {
		return 0
	}
	return float64(e.Precise) / float64(e.Scored())
}

// EarlyUpdateRate is the fraction of scored samples whose oracle fell
// out of the beam before the decode finished.
func (e *Epoch) EarlyUpdateRate() float64 {
	if e.Scored() == 0 {
		return 0
	}
	return float64(e.EarlyUpdates) / float64(e.Scored())
}

// MeanLoss is the average -log(p_label) over scored samples.
func (e *Epoch) MeanLoss() float64 {
	if e.Scored() == 0 {
		return 0
	}
	return e.LossSum / float64(e.Scored())
}

// Eval accumulates evaluation-set figures: whether the gold text
// appeared among the predicted candidates, and at what rank.
type Eval struct {
	Samples int
	Hits    int
	RankSum int
}

// Record folds one evaluation sample's outcome: rank is the gold
// text's position in the ranked candidate list, or beamSize (the
// "outside beam" sentinel) on a miss.
func (e *Eval) Record(rank int, beamSize int) {
	e.Samples++
	e.RankSum += rank
	if rank < beamSize {
		e.Hits++
	}
}

func (e *Eval) Accuracy() float64 {
	if e.Samples == 0 {
		return 0
	}
	return float64(e.Hits) / float64(e.Samples)
}

func (e *Eval) MeanRank() float64 {
	if e.Samples == 0 {
		return 0
	}
	return float64(e.RankSum) / float64(e.Samples)
}
