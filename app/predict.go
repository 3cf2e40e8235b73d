package app

import (
	"bufio"
	"fmt"
	"log"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/nimbleseg/imeseg/internal/decoder"
	"github.com/nimbleseg/imeseg/internal/model"
)

func loadModel(f *os.File) (*model.Model, error) {
	return model.Load(f, 0)
}

const defaultPredictBeam = 20
const defaultPredictK = 5

var (
	predictBeamSize int
	predictK        int
)

// Predict runs the `predict` command: reads one code per
// whitespace-delimited token from standard input and writes
// `rank: text probability` lines, top-k first, for each.
func Predict(cmd *commander.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("app: predict requires DICT MODEL")
	}
	dictFile, modelFile := args[0], args[1]

	dictionary, err := loadDictFile(dictFile)
	if err != nil {
		return err
	}

	mf, err := os.Open(modelFile)
	if err != nil {
		return fmt.Errorf("app: opening model file: %w", err)
	}
	defer mf.Close()
	m, err := loadModel(mf)
	if err != nil {
		return fmt.Errorf("app: loading model: %w", err)
	}

	dec := decoder.New(dictionary, m)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Split(bufio.ScanWords)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for scanner.Scan() {
		code := scanner.Text()
		candidates, err := dec.Predict(code, predictK, predictBeamSize)
		if err != nil {
			log.Printf("predict: %q: %v", code, err)
			fmt.Fprintln(w)
			continue
		}
		for i, c := range candidates {
			fmt.Fprintf(w, "%d: %s %v\n", i, c.Text, c.Probability)
		}
		fmt.Fprintln(w)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("app: reading stdin: %w", err)
	}
	return nil
}

// PredictCmd builds the `predict` command.
func PredictCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Predict,
		UsageLine: "predict DICT MODEL [options]",
		Short:     "interactively predicts target text for codes read from stdin",
		Long: `
interactively predicts target text for codes read from stdin

	$ imeseg predict dict.txt model.txt [options]

`,
		Flag: *flag.NewFlagSet("predict", flag.ExitOnError),
	}
	cmd.Flag.IntVar(&predictBeamSize, "beam", defaultPredictBeam, "Beam size")
	cmd.Flag.IntVar(&predictK, "k", defaultPredictK, "Number of ranked candidates to print")
	return cmd
}
