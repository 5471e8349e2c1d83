package zfstree

import (
	"iter"
)

type Predicate func(record Record, kind Kind) bool

// subsequence of Traverse() for which "pred" holds, in the same order. the store is not
// touched, so re-filtering (e.g. after a toggle) is just calling this again.
// depths are as in the full tree.
func (s *Store) Filtered(pred Predicate) iter.Seq2[int, *Node] {
	return func(yield func(int, *Node) bool) {
		for depth, node := range s.Traverse() {
			if !pred(node.Record, node.Kind) {
				continue
			}

			if !yield(depth, node) {
				return
			}
		}
	}
}

// hides snapshot nodes unless "show"
func ShowSnapshots(show bool) Predicate {
	return func(_ Record, kind Kind) bool {
		return kind != KindSnapshot || show
	}
}
