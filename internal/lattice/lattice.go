// Package lattice implements the beam-search container the decoder
// searches over: one beam per decoding step, each holding at most
// beam_size nodes with back-pointers into the previous step.
//
// Each step's survivors are selected with a min-heap over candidate
// scores, keeping the top beam_size nodes and discarding the rest.
// Go's garbage collector gives heap-allocated *Node values the
// pointer stability a hand-managed arena would otherwise exist to
// guarantee ("survivors' addresses never move"), so there is no
// separate arena: nodes that survive pruning simply stay referenced
// by the beam, and nodes that don't become unreachable.
package lattice

import (
	"container/heap"
	"sort"

	"github.com/nimbleseg/imeseg/internal/dict"
	"github.com/nimbleseg/imeseg/internal/featurevector"
)

// Node is one beam-search element: a partial derivation covering
// code[0..CodePos] and emitting TextPos bytes of target text.
type Node struct {
	Prev     *Node
	CodePos  int
	TextPos  int
	Word     *dict.Word // non-nil iff this node is a reduce transition
	PrevWord *Node      // nearest ancestor whose Word is non-nil

	LocalFeatures  []featurevector.Pair
	GlobalFeatures []featurevector.Pair

	LocalScore float64
	ScoreVal   float64

	step int // which beam this node was finalized into; for diagnostics
}

func (n *Node) Score() float64 { return n.ScoreVal }

// Text reconstructs the emitted target text by walking the back-pointer
// chain and concatenating each reduce node's word text in order.
func (n *Node) Text() string {
	var words []string
	for cur := n; cur != nil; cur = cur.Prev {
		if cur.Word != nil && cur.Word.Text != "" {
			words = append(words, cur.Word.Text)
		}
	}
	buf := make([]byte, 0, n.TextPos)
	for i := len(words) - 1; i >= 0; i-- {
		buf = append(buf, words[i]...)
	}
	return string(buf)
}

// PendingSpanLen is pos - CodePos, the length of the code bytes shifted
// but not yet reduced, as of the given step index.
func (n *Node) PendingSpanLen(pos int) int {
	return pos - n.CodePos
}

// Path walks Prev back-pointers to the root, returning nodes ordered
// from root to rear (oldest to newest).
func (n *Node) Path() []*Node {
	var rev []*Node
	for cur := n; cur != nil; cur = cur.Prev {
		rev = append(rev, cur)
	}
	path := make([]*Node, len(rev))
	for i, node := range rev {
		path[len(rev)-1-i] = node
	}
	return path
}

// nodeHeap is a min-heap over *Node ordered by Score, used to retain the
// beam_size highest-scoring candidates emplaced during one step.
type nodeHeap []*Node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].ScoreVal < h[j].ScoreVal }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Lattice owns all nodes produced during one decode, organized into an
// ordered sequence of beams. Step 0 holds the root; step k (1<=k<=len
// code) holds up to beam_size nodes; an optional terminal step follows.
type Lattice struct {
	beams     [][]*Node
	beamSize  int
	codeLen   int
	current   nodeHeap
	stepIndex int
}

func New() *Lattice {
	return &Lattice{}
}

// Init preallocates beam storage for a decode of the given code length
// and beam size. Any nodes from a previous decode are released (the
// beams slice is replaced, not reused) — "reinitialisation reclaims all
// previously allocated nodes".
func (l *Lattice) Init(codeLength, beamSize int) {
	l.beamSize = beamSize
	l.codeLen = codeLength
	l.beams = make([][]*Node, 0, codeLength+2)
	l.current = nil
	l.stepIndex = 0
}

// BeginRoot opens step 0 and places a single root node in it, optionally
// tagging it with the BOS sentinel so bigram features can span the
// sentence start.
func (l *Lattice) BeginRoot(withSentinel bool) *Node {
	root := &Node{CodePos: 0, TextPos: 0}
	if withSentinel {
		root.Word = dict.Sentinel()
		root.PrevWord = root
	}
	l.beams = append(l.beams, []*Node{root})
	l.stepIndex = 0
	return root
}

// BeginStep opens a new beam at the current tail and resets the
// per-step top-k heap.
func (l *Lattice) BeginStep() {
	l.current = make(nodeHeap, 0, l.beamSize+1)
	l.stepIndex++
}

// Emplace offers a candidate node to the current step's top-k heap. The
// heap always accepts the push, then evicts the minimum once it exceeds
// beam_size; the evicted node simply becomes unreachable and is
// collected.
func (l *Lattice) Emplace(n *Node) {
	heap.Push(&l.current, n)
	if l.current.Len() > l.beamSize {
		heap.Pop(&l.current)
	}
}

// EndStep finalizes the current step's beam: the surviving heap members,
// sorted by descending score, become the new tail beam.
func (l *Lattice) EndStep() []*Node {
	survivors := make([]*Node, len(l.current))
	copy(survivors, l.current)
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].ScoreVal > survivors[j].ScoreVal })
	for _, n := range survivors {
		n.step = l.stepIndex
	}
	l.beams = append(l.beams, survivors)
	l.current = nil
	return survivors
}

// AppendToBack inserts an extra node directly into the most recently
// finalized beam, bypassing the top-k heap. Training's early-update
// fallout handling uses this to splice in the oracle's node after
// pruning has already finalized the step.
func (l *Lattice) AppendToBack(n *Node) {
	last := len(l.beams) - 1
	l.beams[last] = append(l.beams[last], n)
}

// Back returns the most recently finalized beam.
func (l *Lattice) Back() []*Node {
	if len(l.beams) == 0 {
		return nil
	}
	return l.beams[len(l.beams)-1]
}

// Beam returns the beam at the given step index (0 is the root step).
func (l *Lattice) Beam(step int) []*Node {
	if step < 0 || step >= len(l.beams) {
		return nil
	}
	return l.beams[step]
}

func (l *Lattice) NumSteps() int {
	return len(l.beams)
}

// GetPaths returns at most num nodes from the final beam, ordered by
// descending score; each node's Prev chain is the path it terminates.
func (l *Lattice) GetPaths(num int) []*Node {
	final := l.Back()
	if num > len(final) {
		num = len(final)
	}
	out := make([]*Node, num)
	copy(out, final[:num])
	return out
}
