package engine

import (
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/tree"
)

// Walker enumerates the RowSpecs of a tree. Walks are lazy: a consumer that
// stops pulling stops the walk. Branches that contradict contribute nothing;
// walking never fails.
type Walker interface {
	Walk(t *tree.DecisionTree) iter.Seq[fieldspec.RowSpec]
}

// WalkerKind names a walking strategy.
type WalkerKind string

const (
	WalkerCartesian WalkerKind = "cartesian"
	WalkerReductive WalkerKind = "reductive"
)

// ParseWalkerKind parses a walker name.
func ParseWalkerKind(s string) (WalkerKind, error) {
	switch k := WalkerKind(strings.ToLower(strings.TrimSpace(s))); k {
	case WalkerCartesian, WalkerReductive:
		return k, nil
	}
	return "", fmt.Errorf("unknown walker %q: must be cartesian or reductive", s)
}

// CartesianWalker expands every decision: the RowSpecs are the cartesian
// product across sibling decisions of the options that survive merging.
type CartesianWalker struct{}

// Walk yields one RowSpec per consistent choice of options.
func (CartesianWalker) Walk(t *tree.DecisionTree) iter.Seq[fieldspec.RowSpec] {
	return func(yield func(fieldspec.RowSpec) bool) {
		walkNode(t.Root, nil, fieldspec.NewRowSpec(t.Fields), yield)
	}
}

// walkNode merges n into acc and walks n's decisions followed by pending,
// the decisions still owed by n's ancestors. It returns false once yield
// asks to stop.
func walkNode(n *tree.ConstraintNode, pending []*tree.DecisionNode, acc fieldspec.RowSpec, yield func(fieldspec.RowSpec) bool) bool {
	merged, ok := acc.Merge(n.Specs()).Get()
	if !ok {
		return true
	}
	decisions := n.Decisions()
	if len(pending) > 0 {
		decisions = append(decisions, pending...)
	}
	return walkDecisions(decisions, merged, yield)
}

func walkDecisions(decisions []*tree.DecisionNode, acc fieldspec.RowSpec, yield func(fieldspec.RowSpec) bool) bool {
	if len(decisions) == 0 {
		return yield(acc)
	}
	head, rest := decisions[0], decisions[1:]
	for _, option := range head.Options() {
		if !walkNode(option, rest, acc, yield) {
			return false
		}
	}
	return true
}
