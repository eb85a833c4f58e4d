package planner

import (
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/wricardo/magic-maze/game/engine"
)

// node is one trie position. Children keep insertion order so equal
// priorities always resolve to the route that was added first.
type node struct {
	// leaf is the priority of the route ending here, valid when set
	leaf float64
	set  bool
	// best caches the maximum leaf priority in this subtree
	best     float64
	children *orderedmap.OrderedMap[engine.Action, *node]
}

func newNode() *node {
	return &node{best: math.Inf(-1), children: orderedmap.New[engine.Action, *node]()}
}

func (n *node) recompute() {
	n.best = math.Inf(-1)
	if n.set {
		n.best = n.leaf
	}
	for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
		n.best = max(n.best, pair.Value.best)
	}
}

// Tree is a trie of action sequences. Every node caches the best leaf
// priority below it.
type Tree struct {
	root *node
}

// NewTree creates an empty decision tree.
func NewTree() *Tree {
	return &Tree{root: newNode()}
}

// AddRoute inserts a route and sets the priority of its leaf, replacing
// whatever an earlier route to the same leaf stored there.
func (t *Tree) AddRoute(actions []engine.Action, priority float64) {
	if len(actions) == 0 {
		return
	}
	path := make([]*node, 0, len(actions)+1)
	cur := t.root
	path = append(path, cur)
	for _, a := range actions {
		child, ok := cur.children.Get(a)
		if !ok {
			child = newNode()
			cur.children.Set(a, child)
		}
		cur = child
		path = append(path, cur)
	}
	cur.leaf, cur.set = priority, true
	for i := len(path) - 1; i >= 0; i-- {
		path[i].recompute()
	}
}

// BestAction returns the root child with the highest positive priority.
// Ties go to the child inserted first.
func (t *Tree) BestAction() (engine.Action, bool) {
	var (
		best  engine.Action
		found bool
		top   float64
	)
	for pair := t.root.children.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.best <= 0 {
			continue
		}
		if !found || pair.Value.best > top {
			best, top, found = pair.Key, pair.Value.best, true
		}
	}
	return best, found
}

// TakeAction advances the root along action, discarding every other branch.
// It reports false, leaving the tree unchanged, when no such branch exists.
func (t *Tree) TakeAction(action engine.Action) bool {
	child, ok := t.root.children.Get(action)
	if !ok {
		return false
	}
	t.root = child
	return true
}

// IsEmpty reports whether there is nothing left to do.
func (t *Tree) IsEmpty() bool {
	return t.root.children.Len() == 0
}

// Priority returns the best leaf priority of the subtree reached by
// following actions from the root.
func (t *Tree) Priority(actions ...engine.Action) (float64, bool) {
	cur := t.root
	for _, a := range actions {
		child, ok := cur.children.Get(a)
		if !ok {
			return 0, false
		}
		cur = child
	}
	return cur.best, true
}

// Route is one root-to-leaf action sequence with its leaf priority.
type Route struct {
	Actions  []engine.Action
	Priority float64
}

// Routes lists every stored route in insertion order, a route that is the
// prefix of another coming before it.
func (t *Tree) Routes() []Route {
	var out []Route
	var walk func(n *node, prefix []engine.Action)
	walk = func(n *node, prefix []engine.Action) {
		if n.set && len(prefix) > 0 {
			out = append(out, Route{Actions: append([]engine.Action(nil), prefix...), Priority: n.leaf})
		}
		for pair := n.children.Oldest(); pair != nil; pair = pair.Next() {
			walk(pair.Value, append(prefix, pair.Key))
		}
	}
	walk(t.root, nil)
	return out
}
