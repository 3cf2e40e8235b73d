// Package featurevector implements the sparse weight/feature vector
// arithmetic that internal/model is built on top of.
package featurevector

import (
	"fmt"
	"sort"
	"strings"
)

// Sparse is a sparse vector keyed by feature string. A missing key is
// defined to hold the zero value, matching the dictionary-like weight
// map described by the model's score/update contract.
type Sparse map[string]float64

func New() Sparse {
	return make(Sparse)
}

func (v Sparse) Copy() Sparse {
	copied := make(Sparse, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

// UpdateAdd mutates v in place, adding other's entries scaled by amount.
func (v Sparse) UpdateAdd(other Sparse, amount float64) {
	if other == nil {
		return
	}
	for key, otherVal := range other {
		val := v[key] + otherVal*amount
		if val != 0.0 {
			v[key] = val
		} else {
			delete(v, key)
		}
	}
}

// ScalarDivide divides every weight in place.
func (v Sparse) ScalarDivide(by float64) {
	if by == 0.0 {
		panic("featurevector: divide by 0")
	}
	for k, val := range v {
		v[k] = val / by
	}
}

// DotProduct computes sum(v[k] * value) over the given pairs, treating
// missing keys in v as zero.
func DotProduct(v Sparse, pairs []Pair) float64 {
	var result float64
	for _, p := range pairs {
		result += v[p.Key] * p.Value
	}
	return result
}

// Pair is a single (feature key, value) contribution, the unit the
// decoder attaches to lattice nodes and the model scores/updates with.
type Pair struct {
	Key   string
	Value float64
}

func Ones(keys []string) []Pair {
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{k, 1}
	}
	return pairs
}

func (v Sparse) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	strs := make([]string, 0, len(keys))
	for _, k := range keys {
		strs = append(strs, fmt.Sprintf("%s\t%v", k, v[k]))
	}
	return strings.Join(strs, "\n")
}
