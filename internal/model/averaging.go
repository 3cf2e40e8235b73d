package model

// AveragingStrategy accumulates a running sum of the weight vector after
// every observed training sample and, at the end of training, returns a
// separate model holding the per-sample average; the live model's
// weights are left as they are. This is the standard
// variance-reduction trick for structured perceptrons, trading exact
// round-trip of raw per-sample weights for a smoother final model.
type AveragingStrategy struct {
	n      int64
	accum  *Model
	active bool
}

func NewAveragingStrategy(base *Model) *AveragingStrategy {
	return &AveragingStrategy{accum: New(base.LearningRate), active: true}
}

// Observe folds the current state of the live model into the running
// sum. Call once per training sample, after any Update calls for that
// sample.
func (a *AveragingStrategy) Observe(m *Model) {
	if !a.active {
		return
	}
	a.accum.Weights.UpdateAdd(m.Weights, 1)
	a.n++
}

// Finalize returns the averaged model. It is not idempotent: each call
// divides the accumulated sum by n again, so call it at most once per
// training run. Calling it with n == 0 returns an empty model rather
// than dividing by zero.
func (a *AveragingStrategy) Finalize() *Model {
	if a.n == 0 {
		return a.accum
	}
	a.accum.Weights.ScalarDivide(float64(a.n))
	return a.accum
}
