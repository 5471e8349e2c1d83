package zfstree

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/function61/gokit/assert"
	"github.com/function61/gokit/logex"
	"github.com/function61/zfsview/pkg/zfsdataset"
)

func vol(name string, used uint64) zfsdataset.Volume {
	return zfsdataset.Volume{Name: name, Used: used, CompressRatio: 1.0}
}

func snap(dataset string, name string, refer uint64) zfsdataset.SnapshotOf {
	return zfsdataset.SnapshotOf{
		Dataset: dataset,
		Snapshot: zfsdataset.Snapshot{
			Name:          name,
			CompressRatio: 1.0,
			Referenced:    refer,
		},
	}
}

// indented "name (kind)" lines, one per node in pre-order
func dump(store *Store) string {
	lines := []string{}
	for depth, node := range store.Traverse() {
		lines = append(lines, fmt.Sprintf("%s%s (%s)", strings.Repeat("  ", depth), node.Name(), node.Kind))
	}
	return strings.Join(lines, "\n")
}

func forEachStoreVariant(t *testing.T, test func(t *testing.T, sync *Synchronizer)) {
	t.Run("scan", func(t *testing.T) {
		test(t, NewSynchronizer(NewStore(DatasetRows), logex.Discard))
	})
	t.Run("index", func(t *testing.T) {
		test(t, NewSynchronizer(NewStore(DatasetRows, WithNameIndex()), logex.Discard))
	})
}

func TestEndToEnd(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		store := sync.Store()

		sync.SyncVolumes([]zfsdataset.Volume{
			vol("pool", 1024),
			vol("pool/a", 1024),
			vol("pool/b", 1024),
		})

		assert.EqualString(t, dump(store), `pool (volume)
  pool/a (volume)
  pool/b (volume)`)

		columns := DatasetColumns()
		for _, node := range store.Traverse() {
			assert.EqualString(t, RenderNode(node, columns)[1], "1.00 KiB")
		}

		result := sync.AttachSnapshots([]zfsdataset.SnapshotOf{snap("pool/a", "snap1", 512)})
		assert.Assert(t, result.Attached == 1)
		assert.Assert(t, len(result.Orphans) == 0)

		poolA, found := store.FindByExactName("pool/a", OnlyKind(KindVolume))
		assert.Assert(t, found)

		poolANode, _ := store.Node(poolA)
		assert.Assert(t, len(poolANode.Children) == 1)

		lenBefore := store.Len()

		result = sync.AttachSnapshots([]zfsdataset.SnapshotOf{snap("pool/missing", "snap1", 512)})
		assert.Assert(t, result.Attached == 0)
		assert.Assert(t, len(result.Orphans) == 1)
		assert.Assert(t, store.Len() == lenBefore)
		assert.Assert(t, len(poolANode.Children) == 1)

		assert.EqualString(t, dump(store), `pool (volume)
  pool/a (volume)
    snap1 (snapshot)
  pool/b (volume)`)

		snapshotNode, _ := store.Node(poolANode.Children[0])
		assert.EqualString(
			t,
			strings.Join(RenderNode(snapshotNode, columns), " | "),
			"snap1 | 0 B | 1.00 | 512 B | -")
	})
}

func TestOrphansAreReportedButOthersAttach(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		sync.SyncVolumes([]zfsdataset.Volume{vol("tank", 0), vol("tank/home", 0)})

		result := sync.AttachSnapshots([]zfsdataset.SnapshotOf{
			snap("tank/gone", "a", 0),
			snap("tank/home", "b", 0),
			snap("tank", "c", 0),
			snap("tank/home/also-gone", "d", 0),
		})

		assert.Assert(t, result.Attached == 2)
		assert.Assert(t, len(result.Orphans) == 2)

		errs := result.Errors()
		assert.Assert(t, errors.Is(errs[0], ErrOrphanSnapshot))
		assert.EqualString(t, errs[0].Error(), "orphan snapshot: tank/gone@a: volume tank/gone not found")
		assert.EqualString(t, errs[1].Error(), "orphan snapshot: tank/home/also-gone@d: volume tank/home/also-gone not found")

		assert.EqualString(t, dump(sync.Store()), `tank (volume)
  tank/home (volume)
    b (snapshot)
  c (snapshot)`)
	})
}

func TestVolumeWithoutParentBecomesRoot(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		sync.SyncVolumes([]zfsdataset.Volume{
			vol("tank/orphaned/child", 0), // parent not (yet) known
			vol("tank", 0),
			vol("tank/orphaned", 0),
			vol("backup", 0),
			vol("backup/tank", 0),
		})

		assert.EqualString(t, dump(sync.Store()), `tank/orphaned/child (volume)
tank (volume)
  tank/orphaned (volume)
backup (volume)
  backup/tank (volume)`)

		assert.Assert(t, len(sync.Store().Roots()) == 3)
	})
}

func TestSyncVolumesIsIdempotent(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		volumes := []zfsdataset.Volume{
			vol("tank", 1),
			vol("tank/a", 2),
			vol("tank/a/b", 3),
			vol("tank/c", 4),
		}

		sync.SyncVolumes(volumes)
		sync.AttachSnapshots([]zfsdataset.SnapshotOf{snap("tank/a", "s", 0)})

		sync.SyncVolumes(volumes)
		once := dump(sync.Store())
		onceLen := sync.Store().Len()

		sync.SyncVolumes(volumes)

		assert.EqualString(t, dump(sync.Store()), once)
		assert.Assert(t, sync.Store().Len() == onceLen)
		assert.Assert(t, onceLen == 4) // previous snapshot is gone
	})
}

func TestParentIsOneSegmentShorter(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		sync.SyncVolumes([]zfsdataset.Volume{
			vol("a", 0),
			vol("a/b", 0),
			vol("a/b/c", 0),
			vol("a/bb", 0),
			vol("a/b/c/d", 0),
			vol("x/y", 0),
			vol("a/bb/c", 0),
		})
		sync.AttachSnapshots([]zfsdataset.SnapshotOf{snap("a/b", "s1", 0), snap("a/bb/c", "s2", 0)})

		store := sync.Store()

		for _, node := range store.Traverse() {
			if node.Parent == NoParent {
				continue
			}

			parent, found := store.Node(node.Parent)
			assert.Assert(t, found)
			assert.Assert(t, parent.Kind == KindVolume)

			if node.Kind == KindVolume {
				parentName, _ := ParentName(node.Name())
				assert.EqualString(t, parent.Name(), parentName)
			}
		}
	})
}

func TestSnapshotIsNotAValidParent(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		store := sync.Store()

		tank := store.Insert(vol("tank", 0), KindVolume, NoParent)
		store.Insert(zfsdataset.Snapshot{Name: "tank/x"}, KindSnapshot, tank)

		_, found := store.FindByExactName("tank/x", OnlyKind(KindVolume))
		assert.Assert(t, !found)

		_, found = store.FindByExactName("tank/x", AnyKind)
		assert.Assert(t, found)
	})
}

func TestFindReturnsFirstInPreOrder(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		store := sync.Store()

		first := store.Insert(vol("root1", 0), KindVolume, NoParent)
		second := store.Insert(vol("root2", 0), KindVolume, NoParent)
		// inserted first, but comes later in pre-order
		dupUnderSecond := store.Insert(vol("dup", 0), KindVolume, second)
		dupUnderFirst := store.Insert(vol("dup", 0), KindVolume, first)

		found, ok := store.FindByExactName("dup", AnyKind)
		assert.Assert(t, ok)
		assert.Assert(t, found == dupUnderFirst)
		assert.Assert(t, found != dupUnderSecond)
	})
}

func TestClear(t *testing.T) {
	forEachStoreVariant(t, func(t *testing.T, sync *Synchronizer) {
		store := sync.Store()

		store.Clear() // no-op when empty
		assert.Assert(t, store.Len() == 0)

		sync.SyncVolumes([]zfsdataset.Volume{vol("tank", 0)})
		assert.Assert(t, store.Len() == 1)

		store.Clear()
		assert.Assert(t, store.Len() == 0)
		assert.Assert(t, len(store.Roots()) == 0)
		assert.EqualString(t, dump(store), "")

		_, found := store.FindByExactName("tank", AnyKind)
		assert.Assert(t, !found)

		_, found = store.Node(0)
		assert.Assert(t, !found)
	})
}

func TestInsertUnderUnknownParentPanics(t *testing.T) {
	defer func() {
		assert.Assert(t, recover() != nil)
	}()

	NewStore(nil).Insert(vol("tank", 0), KindVolume, NodeID(3))
}

func TestTraverseIsLazyAndRestartable(t *testing.T) {
	sync := NewSynchronizer(NewStore(nil), nil)
	sync.SyncVolumes([]zfsdataset.Volume{vol("a", 0), vol("a/b", 0), vol("c", 0)})

	visited := 0
	for range sync.Store().Traverse() {
		visited++
		if visited == 2 {
			break
		}
	}
	assert.Assert(t, visited == 2)

	visited = 0
	for range sync.Store().Traverse() {
		visited++
	}
	assert.Assert(t, visited == 3)
}

func TestParentName(t *testing.T) {
	for _, tc := range []struct {
		input     string
		parent    string
		hasParent bool
	}{
		{"tank", "", false},
		{"tank/home", "tank", true},
		{"tank/home/joonas", "tank/home", true},
	} {
		t.Run(tc.input, func(t *testing.T) {
			parent, hasParent := ParentName(tc.input)
			assert.EqualString(t, parent, tc.parent)
			assert.Assert(t, hasParent == tc.hasParent)
		})
	}
}
