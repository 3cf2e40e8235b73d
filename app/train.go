package app

import (
	"fmt"
	"log"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/nimbleseg/imeseg/internal/config"
	"github.com/nimbleseg/imeseg/internal/corpus"
	"github.com/nimbleseg/imeseg/internal/decoder"
	"github.com/nimbleseg/imeseg/internal/dict"
	"github.com/nimbleseg/imeseg/internal/metrics"
	"github.com/nimbleseg/imeseg/internal/model"
)

var (
	confFile     string
	epochs       int
	batchSize    int
	beamSize     int
	learningRate float64
	threads      int
)

// TrainConfigOut logs the resolved hyperparameters before training
// starts.
func TrainConfigOut(dictFile, trainFile, evalFile, modelFile string, hp config.Hyperparameters) {
	log.Println("Configuration")
	log.Printf("Dictionary:    \t%s", dictFile)
	log.Printf("Train file:    \t%s", trainFile)
	log.Printf("Eval file:     \t%s", evalFile)
	log.Printf("Model out:     \t%s", modelFile)
	log.Printf("Epochs:        \t%d", hp.Epochs)
	log.Printf("Batch size:    \t%d", hp.BatchSize)
	log.Printf("Beam size:     \t%d", hp.BeamSize)
	log.Printf("Learning rate: \t%v", hp.LearningRate)
	log.Printf("Threads:       \t%d", hp.Threads)
}

// Train runs the `train` command body: load dictionary, training set,
// and evaluation set; run EPOCHS passes of batch training with
// early-update structured-perceptron updates, evaluating after each
// epoch; write the averaged model on exit.
func Train(cmd *commander.Command, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("app: train requires DICT TRAIN EVAL MODEL; hyperparameters are set with flags or -conf, not positional arguments")
	}
	dictFile, trainFile, evalFile, modelFile := args[0], args[1], args[2], args[3]

	hp := config.Defaults()
	if confFile != "" {
		var err error
		hp, err = config.Load(confFile, hp)
		if err != nil {
			return fmt.Errorf("app: reading config file: %w", err)
		}
	}
	if epochs > 0 {
		hp.Epochs = epochs
	}
	if batchSize > 0 {
		hp.BatchSize = batchSize
	}
	if beamSize > 0 {
		hp.BeamSize = beamSize
	}
	if learningRate > 0 {
		hp.LearningRate = learningRate
	}
	if threads > 0 {
		hp.Threads = threads
	}
	if hp.Threads > hp.BatchSize {
		hp.Threads = hp.BatchSize
	}

	TrainConfigOut(dictFile, trainFile, evalFile, modelFile, hp)

	dictionary, err := loadDictFile(dictFile)
	if err != nil {
		return err
	}
	trainSet, err := loadSampleFile(trainFile)
	if err != nil {
		return err
	}
	evalSet, err := loadSampleFile(evalFile)
	if err != nil {
		return err
	}

	m := model.New(hp.LearningRate)
	dec := decoder.New(dictionary, m)
	avg := model.NewAveragingStrategy(m)

	for epoch := 0; epoch < hp.Epochs; epoch++ {
		log.SetPrefix(fmt.Sprintf("IT #%d ", epoch))
		var epochMetrics metrics.Epoch
		for start := 0; start < len(trainSet); start += hp.BatchSize {
			end := start + hp.BatchSize
			if end > len(trainSet) {
				end = len(trainSet)
			}
			batch := trainSet[start:end]
			outcomes := dec.TrainBatch(batch, hp.BeamSize, hp.Threads, avg)
			for j, o := range outcomes {
				epochMetrics.Record(o)
				if o.Skipped {
					log.Printf("sent %d skipped (no oracle)", start+j)
				}
			}
		}
		log.Printf("precision %.4f early-update %.4f mean-loss %.4f (scored %d/%d)",
			epochMetrics.PrecisionRate(), epochMetrics.EarlyUpdateRate(), epochMetrics.MeanLoss(),
			epochMetrics.Scored(), epochMetrics.Samples)

		evalDec := decoder.New(dictionary, m)
		var ev metrics.Eval
		for _, s := range evalSet {
			rank, _, err := evalDec.PredictTarget(s.Code, s.Text, hp.BeamSize)
			if err != nil {
				ev.Record(hp.BeamSize, hp.BeamSize)
				continue
			}
			ev.Record(rank, hp.BeamSize)
		}
		log.Printf("eval accuracy %.4f mean-rank %.4f over %d samples", ev.Accuracy(), ev.MeanRank(), ev.Samples)
	}
	log.SetPrefix("")

	final := avg.Finalize()
	out, err := os.Create(modelFile)
	if err != nil {
		return fmt.Errorf("app: creating model file: %w", err)
	}
	defer out.Close()
	if err := final.Save(out); err != nil {
		return fmt.Errorf("app: writing model file: %w", err)
	}
	return nil
}

func loadDictFile(path string) (*dict.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: opening %s: %w", path, err)
	}
	defer f.Close()
	d, err := corpus.LoadDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("app: loading dictionary %s: %w", path, err)
	}
	return d, nil
}

func loadSampleFile(path string) ([]corpus.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: opening %s: %w", path, err)
	}
	defer f.Close()
	samples, err := corpus.LoadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("app: loading samples %s: %w", path, err)
	}
	return samples, nil
}

// TrainCmd builds the `train` command and its flags.
func TrainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Train,
		UsageLine: "train DICT TRAIN EVAL MODEL [options]",
		Short:     "trains a segmentation model with the structured perceptron",
		Long: `
trains a segmentation model with the structured perceptron

	$ imeseg train dict.txt train.txt eval.txt model.txt [options]

`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&confFile, "conf", "", "Optional YAML hyperparameter file")
	cmd.Flag.IntVar(&epochs, "epochs", 0, "Training epochs (default 2)")
	cmd.Flag.IntVar(&batchSize, "batch", 0, "Batch size (default 100)")
	cmd.Flag.IntVar(&beamSize, "beam", 0, "Beam size (default 20)")
	cmd.Flag.Float64Var(&learningRate, "lr", 0, "Learning rate (default 0.01)")
	cmd.Flag.IntVar(&threads, "threads", 0, "Worker threads (default min(batch, 10))")
	return cmd
}
