package zfsdataset

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// parses output of "$ zfs list -H -p -o name,used,compressratio,refer,avail"
func ParseVolumes(output []byte) ([]Volume, error) {
	volumes := []Volume{}

	err := eachRow(output, len(VolumeFields), func(lineNumber int, columns []string) error {
		used, err := parseBytes(lineNumber, "used", columns[1])
		if err != nil {
			return err
		}

		ratio, err := parseRatio(lineNumber, columns[2])
		if err != nil {
			return err
		}

		refer, err := parseBytes(lineNumber, "refer", columns[3])
		if err != nil {
			return err
		}

		avail, err := parseBytes(lineNumber, "avail", columns[4])
		if err != nil {
			return err
		}

		if columns[0] == "" {
			return malformedRow(lineNumber, "empty name")
		}

		volumes = append(volumes, Volume{
			Name:          columns[0],
			Used:          used,
			CompressRatio: ratio,
			Referenced:    refer,
			Available:     avail,
		})

		return nil
	})

	return volumes, err
}

// parses output of "$ zfs list -H -p -t snapshot -o name,used,compressratio,refer"
func ParseSnapshots(output []byte) ([]SnapshotOf, error) {
	snapshots := []SnapshotOf{}

	err := eachRow(output, len(SnapshotFields), func(lineNumber int, columns []string) error {
		dataset, snapshotName, err := splitSnapshotName(lineNumber, columns[0])
		if err != nil {
			return err
		}

		used, err := parseBytes(lineNumber, "used", columns[1])
		if err != nil {
			return err
		}

		ratio, err := parseRatio(lineNumber, columns[2])
		if err != nil {
			return err
		}

		refer, err := parseBytes(lineNumber, "refer", columns[3])
		if err != nil {
			return err
		}

		snapshots = append(snapshots, SnapshotOf{
			Dataset: dataset,
			Snapshot: Snapshot{
				Name:          snapshotName,
				Used:          used,
				CompressRatio: ratio,
				Referenced:    refer,
			},
		})

		return nil
	})

	return snapshots, err
}

// one record per line, columns separated by tabs. blank lines are skipped
func eachRow(output []byte, columnCount int, handle func(lineNumber int, columns []string) error) error {
	scanner := bufio.NewScanner(bytes.NewReader(output))

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++

		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line == "" {
			continue
		}

		columns := strings.Split(line, "\t")
		if len(columns) != columnCount {
			return malformedRow(lineNumber, "expected %d columns; got %d", columnCount, len(columns))
		}

		if err := handle(lineNumber, columns); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// "tank/home@daily-1" => ("tank/home", "daily-1")
func splitSnapshotName(lineNumber int, fullName string) (string, string, error) {
	parts := strings.Split(fullName, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", malformedRow(lineNumber, "snapshot name not in form dataset@snapshot: %s", fullName)
	}

	return parts[0], parts[1], nil
}

func parseBytes(lineNumber int, property string, value string) (uint64, error) {
	num, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, malformedRow(lineNumber, "%s: %v", property, err)
	}

	return num, nil
}

// without -p the ratio has an "x" suffix ("1.52x")
func parseRatio(lineNumber int, value string) (float64, error) {
	ratio, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64)
	if err != nil {
		return 0, malformedRow(lineNumber, "compressratio: %v", err)
	}

	return ratio, nil
}
