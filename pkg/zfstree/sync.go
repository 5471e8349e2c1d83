package zfstree

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/function61/gokit/logex"
	"github.com/function61/zfsview/pkg/rowschema"
	"github.com/function61/zfsview/pkg/zfsdataset"
)

// no volume with the snapshot's dataset name
var ErrOrphanSnapshot = errors.New("orphan snapshot")

// ingests flat volume & snapshot lists into a Store, resolving parents by name.
// SyncVolumes() must be applied before AttachSnapshots() of the same refresh.
type Synchronizer struct {
	store *Store
	log   *logex.Leveled
}

func NewSynchronizer(store *Store, logger *log.Logger) *Synchronizer {
	return &Synchronizer{
		store: store,
		log:   logex.Levels(logex.NonNil(logger)),
	}
}

func (s *Synchronizer) Store() *Store {
	return s.store
}

// rebuilds the store from scratch. volumes must come parents-first (which is how
// "$ zfs list" orders them); a volume whose parent is not found becomes a root.
func (s *Synchronizer) SyncVolumes(volumes []zfsdataset.Volume) {
	s.store.Clear()

	for _, volume := range volumes {
		parent := NoParent

		if parentName, hasParent := ParentName(volume.Name); hasParent {
			// only volumes qualify as parents
			if id, found := s.store.FindByExactName(parentName, OnlyKind(KindVolume)); found {
				parent = id
			}
		}

		s.store.Insert(volume, KindVolume, parent)
	}
}

type AttachResult struct {
	Attached int
	Orphans  []zfsdataset.SnapshotOf
}

// orphans as errors wrapping ErrOrphanSnapshot
func (a AttachResult) Errors() []error {
	errs := make([]error, 0, len(a.Orphans))
	for _, orphan := range a.Orphans {
		errs = append(errs, orphanErr(orphan))
	}

	return errs
}

// adds each snapshot as last child of its volume. snapshots whose volume is not found are
// skipped (and reported) without failing the others.
//
// does not clear the store: calling this twice for the same refresh duplicates snapshots.
func (s *Synchronizer) AttachSnapshots(snapshots []zfsdataset.SnapshotOf) AttachResult {
	result := AttachResult{}

	for _, snapshot := range snapshots {
		volume, found := s.store.FindByExactName(snapshot.Dataset, OnlyKind(KindVolume))
		if !found {
			s.log.Error.Println(orphanErr(snapshot).Error())

			result.Orphans = append(result.Orphans, snapshot)
			continue
		}

		s.store.Insert(snapshot.Snapshot, KindSnapshot, volume)

		result.Attached++
	}

	return result
}

// "tank/home/joonas" => ("tank/home", true). "tank" => ("", false)
func ParentName(name string) (string, bool) {
	idx := strings.LastIndexByte(name, '/')
	if idx == -1 {
		return "", false
	}

	return name[:idx], true
}

// row cells from the record's own schema. snapshots have one column less than volumes
func DatasetRows(record Record, kind Kind) []rowschema.Cell {
	switch rec := record.(type) {
	case zfsdataset.Volume:
		return zfsdataset.VolumeSchema.ToRow(rec)
	case zfsdataset.Snapshot:
		return zfsdataset.SnapshotSchema.ToRow(rec)
	default:
		return nil
	}
}

// columns for displaying a mixed volume/snapshot tree (volumes have the widest schema)
func DatasetColumns() []rowschema.Column {
	return zfsdataset.VolumeSchema.Columns()
}

// renders node's cells with its own kind's columns, padding to "columns" width
func RenderNode(node *Node, columns []rowschema.Column) []string {
	own := columns
	if node.Kind == KindSnapshot {
		own = zfsdataset.SnapshotSchema.Columns()
	}

	rendered := rowschema.RenderCells(columns, nil)
	copy(rendered, rowschema.RenderCells(own, node.Row))

	return rendered
}

func orphanErr(snapshot zfsdataset.SnapshotOf) error {
	return fmt.Errorf("%w: %s: volume %s not found", ErrOrphanSnapshot, snapshot.FullName(), snapshot.Dataset)
}
