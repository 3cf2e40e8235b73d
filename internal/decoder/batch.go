package decoder

import (
	"sync"

	"github.com/nimbleseg/imeseg/internal/corpus"
	"github.com/nimbleseg/imeseg/internal/model"
)

// SampleOutcome is one sample's training result. A sample that never
// produces an oracle path (ErrNoOracle) is skipped and its Outcome is
// the zero value with Skipped set.
type SampleOutcome struct {
	Outcome
	Skipped bool
}

// TrainBatch computes gradients for a batch of samples concurrently
// across threads workers, then applies them serially in the original
// sample order.
func (d *Decoder) TrainBatch(samples []corpus.Sample, beamSize, threads int, avg *model.AveragingStrategy) []SampleOutcome {
	if threads < 1 {
		threads = 1
	}
	gradients := make([]*Gradient, len(samples))

	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i, s := range samples {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s corpus.Sample) {
			defer wg.Done()
			defer func() { <-sem }()
			g, err := d.ComputeGradient(s.Code, s.Text, beamSize)
			if err == nil {
				gradients[i] = g
			}
		}(i, s)
	}
	wg.Wait()

	outcomes := make([]SampleOutcome, len(samples))
	for i, g := range gradients {
		if g == nil {
			outcomes[i] = SampleOutcome{Skipped: true}
			continue
		}
		d.Apply(g)
		if avg != nil {
			avg.Observe(d.Model)
		}
		outcomes[i] = SampleOutcome{Outcome: g.Outcome}
	}
	return outcomes
}
