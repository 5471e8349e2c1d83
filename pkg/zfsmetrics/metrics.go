// Exports refreshed dataset tree as Prometheus metrics
package zfsmetrics

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/function61/zfsview/pkg/zfsbrowser"
	"github.com/function61/zfsview/pkg/zfsdataset"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/procfs"
	"github.com/samber/lo"
)

type Exporter struct {
	registry *prometheus.Registry

	used          *prometheus.GaugeVec
	referenced    *prometheus.GaugeVec
	available     *prometheus.GaugeVec
	compressRatio *prometheus.GaugeVec
	snapshots     *prometheus.GaugeVec

	refreshFailures prometheus.Counter
	orphans         prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

func NewExporter() *Exporter {
	return newExporter(procSelfMounts)
}

func newExporter(mounts func() ([]*procfs.Mount, error)) *Exporter {
	datasetLabels := []string{"dataset", "type"}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zfs_dataset_used_bytes",
			Help: "Space used by dataset and its descendants",
		}, datasetLabels),
		referenced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zfs_dataset_referenced_bytes",
			Help: "Data accessible by dataset (may be shared with other datasets)",
		}, datasetLabels),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zfs_dataset_available_bytes",
			Help: "Space available to dataset (volumes only)",
		}, []string{"dataset"}),
		compressRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zfs_dataset_compressratio",
			Help: "Compression ratio achieved for referenced space",
		}, datasetLabels),
		snapshots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zfs_dataset_snapshots",
			Help: "Number of snapshots of dataset",
		}, []string{"dataset"}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zfsview_refresh_failures_total",
			Help: "Failed refreshes of volume or snapshot lists",
		}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zfsview_orphan_snapshots_total",
			Help: "Snapshots whose dataset was not found",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zfsview_http_requests_total",
			Help: "HTTP server's handled requests",
		}, []string{"code", "method"}),
	}

	e.registry.MustRegister(
		e.used,
		e.referenced,
		e.available,
		e.compressRatio,
		e.snapshots,
		e.refreshFailures,
		e.orphans,
		e.httpRequests,
		newMountCollector(mounts),
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return e
}

// replaces dataset gauges once a refresh has attached snapshots. the VolumesUpdated view has
// no snapshots yet, so observing it would zero the snapshot series for the rest of the cycle.
// the view should have snapshots shown, otherwise their counts are zero.
func (e *Exporter) Observe(event zfsbrowser.Event) {
	switch event.Kind {
	case zfsbrowser.EventRefreshFailed:
		e.refreshFailures.Inc()
	case zfsbrowser.EventSnapshotsAttached:
		e.orphans.Add(float64(event.Orphans))

		e.observeView(event.View)
	}
}

func (e *Exporter) observeView(view zfsbrowser.View) {
	for _, gauge := range []*prometheus.GaugeVec{e.used, e.referenced, e.available, e.compressRatio, e.snapshots} {
		gauge.Reset()
	}

	volumes := lo.FilterMap(view.Rows, func(row zfsbrowser.Row, _ int) (zfsdataset.Volume, bool) {
		volume, is := row.Record.(zfsdataset.Volume)
		return volume, is
	})

	for _, volume := range volumes {
		e.used.WithLabelValues(volume.Name, "volume").Set(float64(volume.Used))
		e.referenced.WithLabelValues(volume.Name, "volume").Set(float64(volume.Referenced))
		e.available.WithLabelValues(volume.Name).Set(float64(volume.Available))
		e.compressRatio.WithLabelValues(volume.Name, "volume").Set(volume.CompressRatio)
		e.snapshots.WithLabelValues(volume.Name).Set(0)
	}

	// snapshot rows follow their volume in pre-order, but interleaved with child volumes,
	// so track the owner by depth
	ownerAtDepth := map[int]string{}

	for _, row := range view.Rows {
		switch record := row.Record.(type) {
		case zfsdataset.Volume:
			ownerAtDepth[row.Depth] = record.Name
		case zfsdataset.Snapshot:
			owner := ownerAtDepth[row.Depth-1]
			fullName := owner + "@" + record.Name

			e.used.WithLabelValues(fullName, "snapshot").Set(float64(record.Used))
			e.referenced.WithLabelValues(fullName, "snapshot").Set(float64(record.Referenced))
			e.compressRatio.WithLabelValues(fullName, "snapshot").Set(record.CompressRatio)
			e.snapshots.WithLabelValues(owner).Inc()
		}
	}
}

func (e *Exporter) Handler() http.Handler {
	return e.instrument(promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
}

func (e *Exporter) instrument(actual http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats := httpsnoop.CaptureMetrics(actual, w, r)

		e.httpRequests.With(prometheus.Labels{
			"code":   strconv.Itoa(stats.Code),
			"method": r.Method,
		}).Inc()
	})
}
