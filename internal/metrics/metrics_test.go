package metrics

import (
	"testing"

	"github.com/nimbleseg/imeseg/internal/decoder"
)

func TestEpochRatesExcludeSkippedFromDenominator(t *testing.T) {
	var e Epoch
	e.Record(decoder.SampleOutcome{Skipped: true})
	e.Record(decoder.SampleOutcome{Outcome: decoder.Outcome{Precision: true, Loss: 0.1}})
	e.Record(decoder.SampleOutcome{Outcome: decoder.Outcome{Precision: false, EarlyUpdate: true, Loss: 0.3}})

	if e.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", e.Samples)
	}
	if e.Scored() != 2 {
		t.Fatalf("Scored() = %d, want 2 (skipped excluded)", e.Scored())
	}
	if got := e.PrecisionRate(); got != 0.5 {
		t.Fatalf("PrecisionRate = %v, want 0.5", got)
	}
	if got := e.EarlyUpdateRate(); got != 0.5 {
		t.Fatalf("EarlyUpdateRate = %v, want 0.5", got)
	}
	if got := e.MeanLoss(); got != 0.2 {
		t.Fatalf("MeanLoss = %v, want 0.2", got)
	}
}

func TestEvalAccuracyAndMeanRank(t *testing.T) {
	var ev Eval
	ev.Record(0, 5)
	ev.Record(5, 5) // miss: rank == beamSize sentinel
	if got := ev.Accuracy(); got != 0.5 {
		t.Fatalf("Accuracy = %v, want 0.5", got)
	}
	if got := ev.MeanRank(); got != 2.5 {
		t.Fatalf("MeanRank = %v, want 2.5", got)
	}
}
