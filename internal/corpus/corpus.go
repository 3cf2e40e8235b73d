// Package corpus reads the line-oriented "code text" files used for the
// dictionary, training set, and evaluation set: read the whole stream,
// split on newlines, skip anything that doesn't parse rather than
// aborting the run.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/nimbleseg/imeseg/internal/dict"
)

// Sample is one training or evaluation record: an input code string
// paired with its target text.
type Sample struct {
	Code string
	Text string
}

// LoadDictionary reads whitespace-separated "code text" records, one per
// line. Blank or malformed lines are skipped with a logged warning.
func LoadDictionary(r io.Reader) (*dict.Dictionary, error) {
	d := dict.New()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			log.Printf("dict: skipping malformed line %d: %q", lineNo, line)
			continue
		}
		d.Add(fields[0], fields[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dict: read failed: %w", err)
	}
	return d, nil
}

// LoadSamples reads the same "code text" row format for training and
// evaluation streams.
func LoadSamples(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			log.Printf("corpus: skipping malformed line %d: %q", lineNo, line)
			continue
		}
		samples = append(samples, Sample{Code: fields[0], Text: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("corpus: read failed: %w", err)
	}
	return samples, nil
}
