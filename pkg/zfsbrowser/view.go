package zfsbrowser

import (
	"time"

	"github.com/function61/zfsview/pkg/diaglog"
	"github.com/function61/zfsview/pkg/zfstree"
)

type Row struct {
	Depth  int
	Kind   zfstree.Kind
	Cells  []string       // rendered, one per column
	Record zfstree.Record // zfsdataset.Volume or zfsdataset.Snapshot (values, safe to share)
}

// immutable snapshot of the (filtered) tree for the rendering side. built by the owner
// goroutine, so readers never touch the tree itself.
type View struct {
	Columns       []string
	Rows          []Row
	ShowSnapshots bool
	Generation    uint64 // increments per started refresh
	RefreshedAt   time.Time
	Refreshing    bool
	LastError     string // "" if latest refresh succeeded
	Diagnostics   []diaglog.Entry
}

type EventKind int

const (
	EventVolumesUpdated EventKind = iota
	EventSnapshotsAttached
	EventRefreshFailed
	EventFilterChanged
)

func (e EventKind) String() string {
	switch e {
	case EventVolumesUpdated:
		return "volumes updated"
	case EventSnapshotsAttached:
		return "snapshots attached"
	case EventRefreshFailed:
		return "refresh failed"
	case EventFilterChanged:
		return "filter changed"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind    EventKind
	View    View
	Err     error // for EventRefreshFailed
	Orphans int   // for EventSnapshotsAttached
}

func (c *Controller) buildView() View {
	columns := zfstree.DatasetColumns()

	titles := make([]string, len(columns))
	for i, col := range columns {
		titles[i] = col.Title
	}

	rows := []Row{}
	for depth, node := range c.store.Filtered(zfstree.ShowSnapshots(c.showSnapshots)) {
		rows = append(rows, Row{
			Depth:  depth,
			Kind:   node.Kind,
			Cells:  zfstree.RenderNode(node, columns),
			Record: node.Record,
		})
	}

	return View{
		Columns:       titles,
		Rows:          rows,
		ShowSnapshots: c.showSnapshots,
		Generation:    c.generation,
		RefreshedAt:   c.refreshedAt,
		Refreshing:    c.cycle != nil,
		LastError:     c.lastError,
		Diagnostics:   c.diagnostics.Entries(),
	}
}
