// Owns the dataset tree: refreshes it from "$ zfs list" in the background and hands out
// immutable views of it
package zfsbrowser

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/function61/gokit/logex"
	"github.com/function61/zfsview/pkg/diaglog"
	"github.com/function61/zfsview/pkg/zfsdataset"
	"github.com/function61/zfsview/pkg/zfstree"
	"github.com/function61/zfsview/pkg/zfsviewconfig"
	"github.com/robfig/cron/v3"
)

// *zfsdataset.Lister in production. both calls can block for a long time
type Source interface {
	ListVolumes(ctx context.Context) ([]zfsdataset.Volume, error)
	ListSnapshots(ctx context.Context) ([]zfsdataset.SnapshotOf, error)
}

type Options struct {
	ShowSnapshots       bool
	RefreshSchedule     string // cron expression. "" = refresh only when asked
	NameIndex           bool
	DiagnosticsCapacity int
}

type volumesResult struct {
	generation uint64
	volumes    []zfsdataset.Volume
	err        error
}

type snapshotsResult struct {
	generation uint64
	snapshots  []zfsdataset.SnapshotOf
	err        error
}

// refresh in flight
type refreshCycle struct {
	started          time.Time
	volumesDone      bool
	volumesFailed    bool
	snapshotsDone    bool
	pendingSnapshots *snapshotsResult // arrived before volumes were applied
}

type Controller struct {
	source   Source
	schedule cron.Schedule // nil if no periodic refresh
	log      *logex.Leveled

	refreshRequest       chan struct{}
	showSnapshotsRequest chan bool
	viewRequest          chan chan View
	volumesFetched       chan volumesResult
	snapshotsFetched     chan snapshotsResult
	stopped              chan struct{}
	events               chan Event

	// below state is touched only by the goroutine in Run()
	store         *zfstree.Store
	sync          *zfstree.Synchronizer
	showSnapshots bool
	generation    uint64
	cycle         *refreshCycle // nil if no refresh in flight
	refreshedAt   time.Time
	lastError     string
	diagnostics   *diaglog.Tail // (this one is safe for concurrent use)
	now           func() time.Time
}

func New(source Source, opts Options, logger *log.Logger) (*Controller, error) {
	var schedule cron.Schedule
	if opts.RefreshSchedule != "" {
		var err error
		schedule, err = zfsviewconfig.ScheduleParser.Parse(opts.RefreshSchedule)
		if err != nil {
			return nil, fmt.Errorf("refresh schedule: %w", err)
		}
	}

	storeOpts := []zfstree.Option{}
	if opts.NameIndex {
		storeOpts = append(storeOpts, zfstree.WithNameIndex())
	}

	diagnosticsCapacity := opts.DiagnosticsCapacity
	if diagnosticsCapacity == 0 {
		diagnosticsCapacity = 50
	}

	store := zfstree.NewStore(zfstree.DatasetRows, storeOpts...)

	return &Controller{
		source:   source,
		schedule: schedule,
		log:      logex.Levels(logex.NonNil(logger)),

		refreshRequest:       make(chan struct{}),
		showSnapshotsRequest: make(chan bool),
		viewRequest:          make(chan chan View),
		volumesFetched:       make(chan volumesResult, 1),
		snapshotsFetched:     make(chan snapshotsResult, 1),
		stopped:              make(chan struct{}),
		events:               make(chan Event, 16),

		store:         store,
		sync:          zfstree.NewSynchronizer(store, logex.Prefix("sync", logex.NonNil(logger))),
		showSnapshots: opts.ShowSnapshots,
		diagnostics:   diaglog.NewTail(diagnosticsCapacity),
		now:           time.Now,
	}, nil
}

// wires a controller to "$ zfs" as configured
func NewFromConfig(conf *zfsviewconfig.Config, logger *log.Logger) (*Controller, error) {
	lister := zfsdataset.NewLister(zfsdataset.CommandBackend(
		conf.ZfsCommand,
		logex.Prefix("zfs", logex.NonNil(logger))))

	return New(lister, Options{
		ShowSnapshots:   conf.ShowSnapshots,
		RefreshSchedule: conf.RefreshSchedule,
		NameIndex:       conf.NameIndex,
	}, logger)
}

// starts a refresh, unless one is already in flight (then the request is ignored)
func (c *Controller) Refresh() {
	select {
	case c.refreshRequest <- struct{}{}:
	case <-c.stopped:
	}
}

func (c *Controller) SetShowSnapshots(show bool) {
	select {
	case c.showSnapshotsRequest <- show:
	case <-c.stopped:
	}
}

// consistent view of current state. zero View if controller has stopped
func (c *Controller) View() View {
	result := make(chan View, 1)

	select {
	case c.viewRequest <- result:
		return <-result
	case <-c.stopped:
		return View{}
	}
}

// VolumesUpdated, SnapshotsAttached etc. events are dropped if nobody keeps up, but each
// event's View is complete so consumers only need the latest one
func (c *Controller) Events() <-chan Event {
	return c.events
}

// closed when Run() has returned
func (c *Controller) Stopped() <-chan struct{} {
	return c.stopped
}

// the tree is only ever touched from this goroutine. slow "$ zfs" invocations run in
// their own goroutines and report back via channels.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)

	scheduledRefresh := c.nextScheduledRefresh(c.now())

	for {
		select {
		case <-ctx.Done():
			// in-flight workers see the same cancellation & their results go to buffered channels
			return nil
		case <-c.refreshRequest:
			c.startRefresh(ctx)
		case now := <-scheduledRefresh:
			c.startRefresh(ctx)

			scheduledRefresh = c.nextScheduledRefresh(now)
		case show := <-c.showSnapshotsRequest:
			if show != c.showSnapshots {
				c.showSnapshots = show

				c.emit(Event{Kind: EventFilterChanged})
			}
		case result := <-c.viewRequest:
			result <- c.buildView()
		case volumes := <-c.volumesFetched:
			c.volumesFetchedHandler(volumes)
		case snapshots := <-c.snapshotsFetched:
			c.snapshotsFetchedHandler(snapshots)
		}
	}
}

func (c *Controller) startRefresh(ctx context.Context) {
	if c.cycle != nil {
		c.log.Info.Println("refresh already in progress; ignoring request")
		return
	}

	c.generation++
	c.cycle = &refreshCycle{started: c.now()}

	generation := c.generation

	c.log.Debug.Printf("refresh %d starting", generation)

	go func() {
		volumes, err := c.source.ListVolumes(ctx)
		c.volumesFetched <- volumesResult{generation, volumes, err}
	}()

	go func() {
		snapshots, err := c.source.ListSnapshots(ctx)
		c.snapshotsFetched <- snapshotsResult{generation, snapshots, err}
	}()
}

func (c *Controller) volumesFetchedHandler(result volumesResult) {
	if c.cycle == nil || result.generation != c.generation {
		c.log.Error.Printf("dropping volumes of stale refresh %d", result.generation)
		return
	}

	c.cycle.volumesDone = true

	if result.err != nil {
		// tree is left as it was
		c.cycle.volumesFailed = true
		c.refreshFailed(fmt.Errorf("volumes: %w", result.err))
	} else {
		c.sync.SyncVolumes(result.volumes)

		c.lastError = ""
		c.refreshedAt = c.now()

		c.emit(Event{Kind: EventVolumesUpdated})
	}

	if pending := c.cycle.pendingSnapshots; pending != nil {
		c.cycle.pendingSnapshots = nil

		c.applySnapshots(*pending)
	}

	c.finishCycleIfDone()
}

func (c *Controller) snapshotsFetchedHandler(result snapshotsResult) {
	if c.cycle == nil || result.generation != c.generation {
		c.log.Error.Printf("dropping snapshots of stale refresh %d", result.generation)
		return
	}

	if !c.cycle.volumesDone { // can't attach to volumes that aren't there yet
		c.cycle.pendingSnapshots = &result
		return
	}

	c.applySnapshots(result)

	c.finishCycleIfDone()
}

func (c *Controller) applySnapshots(result snapshotsResult) {
	c.cycle.snapshotsDone = true

	if c.cycle.volumesFailed {
		// the old tree already has its snapshots. attaching these would duplicate them
		c.log.Debug.Println("discarding snapshots since volume refresh failed")
		return
	}

	if result.err != nil {
		c.refreshFailed(fmt.Errorf("snapshots: %w", result.err))
		return
	}

	attached := c.sync.AttachSnapshots(result.snapshots)

	for _, err := range attached.Errors() {
		c.diagnostics.Add(err.Error())
	}

	c.emit(Event{Kind: EventSnapshotsAttached, Orphans: len(attached.Orphans)})
}

func (c *Controller) finishCycleIfDone() {
	if !c.cycle.volumesDone || !c.cycle.snapshotsDone {
		return
	}

	c.log.Debug.Printf("refresh %d completed in %s", c.generation, c.now().Sub(c.cycle.started))

	c.cycle = nil
}

func (c *Controller) refreshFailed(err error) {
	c.lastError = err.Error()

	c.diagnostics.Addf("refresh %d failed: %v", c.generation, err)

	c.log.Error.Printf("refresh %d: %v", c.generation, err)

	c.emit(Event{Kind: EventRefreshFailed, Err: err})
}

// fills in the view
func (c *Controller) emit(e Event) {
	e.View = c.buildView()

	select {
	case c.events <- e:
	default:
		c.log.Debug.Printf("event %s dropped; consumer not keeping up", e.Kind)
	}
}

func (c *Controller) nextScheduledRefresh(now time.Time) <-chan time.Time {
	if c.schedule == nil {
		return nil // channel that blocks forever
	}

	return time.After(time.Until(c.schedule.Next(now)))
}
