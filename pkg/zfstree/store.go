// Forest of volumes & snapshots, kept in sync with flat "$ zfs list" results
package zfstree

import (
	"fmt"
	"iter"

	"github.com/function61/zfsview/pkg/rowschema"
)

type Kind int

const (
	KindVolume Kind = iota
	KindSnapshot
)

func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Record interface {
	RecordName() string
}

// handle to a node. valid until the next Clear()
type NodeID int

// parent of root nodes
const NoParent NodeID = -1

// treat as read-only
type Node struct {
	ID       NodeID
	Kind     Kind
	Record   Record
	Row      []rowschema.Cell
	Parent   NodeID // NoParent for roots
	Children []NodeID
}

func (n *Node) Name() string {
	return n.Record.RecordName()
}

// builds a node's row cells when it is inserted
type RowMapper func(record Record, kind Kind) []rowschema.Cell

type KindFilter func(Kind) bool

func AnyKind(Kind) bool { return true }

func OnlyKind(kind Kind) KindFilter {
	return func(k Kind) bool { return k == kind }
}

// nodes live in an arena and refer to each other by index, so parent links never dangle.
// not safe for concurrent use: the owner is expected to be a single goroutine.
type Store struct {
	nodes []*Node
	roots []NodeID
	rows  RowMapper
	index map[string][]NodeID // name -> nodes in insertion order. nil if not enabled
}

type Option func(*Store)

// replaces the linear scan in FindByExactName() with an index maintained on insert. worth it
// for pools with lots of datasets; the results are the same.
func WithNameIndex() Option {
	return func(s *Store) {
		s.index = map[string][]NodeID{}
	}
}

// "rows" can be nil, in which case nodes have no row cells
func NewStore(rows RowMapper, opts ...Option) *Store {
	s := &Store{rows: rows}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Clear() {
	s.nodes = nil
	s.roots = nil

	if s.index != nil {
		s.index = map[string][]NodeID{}
	}
}

// appends as last child of "parent", or as a new root if parent is NoParent
func (s *Store) Insert(record Record, kind Kind, parent NodeID) NodeID {
	if parent != NoParent && !s.valid(parent) {
		panic(fmt.Sprintf("zfstree: Insert under unknown parent %d", parent))
	}

	id := NodeID(len(s.nodes))

	var row []rowschema.Cell
	if s.rows != nil {
		row = s.rows(record, kind)
	}

	s.nodes = append(s.nodes, &Node{
		ID:     id,
		Kind:   kind,
		Record: record,
		Row:    row,
		Parent: parent,
	})

	if parent == NoParent {
		s.roots = append(s.roots, id)
	} else {
		s.nodes[parent].Children = append(s.nodes[parent].Children, id)
	}

	if s.index != nil {
		name := record.RecordName()
		s.index[name] = append(s.index[name], id)
	}

	return id
}

// first node in pre-order whose name equals "name" and whose kind passes "filter"
func (s *Store) FindByExactName(name string, filter KindFilter) (NodeID, bool) {
	if s.index != nil {
		return s.findIndexed(name, filter)
	}

	return s.findByScan(name, filter)
}

// O(n) per call, so O(n²) for a whole ingestion. fine for the dataset counts we see
func (s *Store) findByScan(name string, filter KindFilter) (NodeID, bool) {
	for _, node := range s.Traverse() {
		if node.Name() == name && filter(node.Kind) {
			return node.ID, true
		}
	}

	return NoParent, false
}

func (s *Store) findIndexed(name string, filter KindFilter) (NodeID, bool) {
	candidates := []NodeID{}
	for _, id := range s.index[name] {
		if filter(s.nodes[id].Kind) {
			candidates = append(candidates, id)
		}
	}

	switch len(candidates) {
	case 0:
		return NoParent, false
	case 1:
		return candidates[0], true
	default:
		// insertion order != pre-order, so duplicates need the scan to keep the same answer
		return s.findByScan(name, filter)
	}
}

func (s *Store) Node(id NodeID) (*Node, bool) {
	if !s.valid(id) {
		return nil, false
	}

	return s.nodes[id], true
}

func (s *Store) Roots() []NodeID {
	return append([]NodeID{}, s.roots...)
}

func (s *Store) Len() int {
	return len(s.nodes)
}

// lazy pre-order walk yielding (depth, node). roots have depth 0
func (s *Store) Traverse() iter.Seq2[int, *Node] {
	return func(yield func(int, *Node) bool) {
		for _, root := range s.roots {
			if !s.walk(root, 0, yield) {
				return
			}
		}
	}
}

func (s *Store) walk(id NodeID, depth int, yield func(int, *Node) bool) bool {
	node := s.nodes[id]

	if !yield(depth, node) {
		return false
	}

	for _, child := range node.Children {
		if !s.walk(child, depth+1, yield) {
			return false
		}
	}

	return true
}

func (s *Store) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(s.nodes)
}
