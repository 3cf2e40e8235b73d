package decoder

import (
	"testing"

	"github.com/nimbleseg/imeseg/internal/corpus"
	"github.com/nimbleseg/imeseg/internal/dict"
	"github.com/nimbleseg/imeseg/internal/model"
)

func TestTrainBatchAppliesAllSamples(t *testing.T) {
	d := dict.New()
	d.Add("ni", "你")
	d.Add("hao", "好")
	d.Add("nihao", "你好")
	m := model.New(0.1)
	dec := New(d, m)

	samples := make([]corpus.Sample, 20)
	for i := range samples {
		samples[i] = corpus.Sample{Code: "nihao", Text: "你好"}
	}

	avg := model.NewAveragingStrategy(m)
	outcomes := dec.TrainBatch(samples, 5, 4, avg)
	if len(outcomes) != len(samples) {
		t.Fatalf("expected %d outcomes, got %d", len(samples), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Skipped {
			t.Fatalf("sample %d unexpectedly skipped", i)
		}
	}
	if _, ok := m.Weights["unigram:你好"]; !ok {
		t.Fatalf("expected training to have updated unigram:你好")
	}
}

func TestTrainBatchSkipsUndecodableSample(t *testing.T) {
	d := dict.New()
	d.Add("ab", "X")
	m := model.New(0.1)
	dec := New(d, m)

	samples := []corpus.Sample{{Code: "zz", Text: "Q"}}
	outcomes := dec.TrainBatch(samples, 5, 1, nil)
	if !outcomes[0].Skipped {
		t.Fatalf("expected undecodable sample to be skipped")
	}
}
