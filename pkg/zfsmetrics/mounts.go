package zfsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
)

// reads mounts at scrape time, so it's current even between refreshes
type mountCollector struct {
	mounts  func() ([]*procfs.Mount, error)
	mounted *prometheus.Desc
}

func newMountCollector(mounts func() ([]*procfs.Mount, error)) *mountCollector {
	return &mountCollector{
		mounts: mounts,
		mounted: prometheus.NewDesc(
			"zfs_dataset_mounted",
			"ZFS filesystems mounted in our mount namespace",
			[]string{"dataset", "mountpoint"},
			nil),
	}
}

func (m *mountCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.mounted
}

func (m *mountCollector) Collect(ch chan<- prometheus.Metric) {
	mounts, err := m.mounts()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(m.mounted, err)
		return
	}

	for _, mount := range zfsMounts(mounts) {
		ch <- prometheus.MustNewConstMetric(m.mounted, prometheus.GaugeValue, 1, mount.Device, mount.Mount)
	}
}

// for zfs mounts, Device is the dataset name
func zfsMounts(mounts []*procfs.Mount) []*procfs.Mount {
	zfs := []*procfs.Mount{}
	for _, mount := range mounts {
		if mount.Type == "zfs" {
			zfs = append(zfs, mount)
		}
	}

	return zfs
}

func procSelfMounts() ([]*procfs.Mount, error) {
	procSelf, err := procfs.Self()
	if err != nil {
		return nil, err
	}

	return procSelf.MountStats()
}
