// Package config reads the optional YAML hyperparameter file: read the
// whole file, unmarshal into a plain struct, and let the caller layer
// flag overrides on top.
package config

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Hyperparameters holds the tunable values exposed on the train
// command: epoch count, batch size, beam width, learning rate, and
// worker thread count.
type Hyperparameters struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	BeamSize     int     `yaml:"beam_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Threads      int     `yaml:"threads"`
}

// Defaults returns the documented defaults: 2 epochs, a batch size of
// 100, a beam width of 20, a learning rate of 0.01, and as many worker
// threads as min(batch_size, 10).
func Defaults() Hyperparameters {
	return Hyperparameters{
		Epochs:       2,
		BatchSize:    100,
		BeamSize:     20,
		LearningRate: 0.01,
		Threads:      10,
	}
}

// Load reads a YAML hyperparameter file, overriding the fields of a
// copy of base. Fields the file does not name keep base's value, so a
// config file only needs to name the settings it overrides; a field the
// file does name replaces base's value, even when it is zero.
func Load(path string, base Hyperparameters) (Hyperparameters, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return base, err
	}
	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, err
	}
	return out, nil
}
