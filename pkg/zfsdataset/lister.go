package zfsdataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/function61/gokit/logex"
	"github.com/function61/zfsview/pkg/diaglog"
)

// runs "$ zfs <args>" and returns its stdout. swappable for tests
type Backend func(ctx context.Context, args []string) ([]byte, error)

// "command" is the zfs invocation prefix, like ["zfs"] or ["sudo", "zfs"].
// stderr of the process is logged line by line.
func CommandBackend(command []string, logger *log.Logger) Backend {
	stderrLog := logex.NonNil(logger)

	return func(ctx context.Context, args []string) ([]byte, error) {
		if len(command) == 0 {
			return nil, fmt.Errorf("%w: empty zfs command", ErrSourceUnavailable)
		}

		// tail of stderr kept for the error message
		stderr := &bytes.Buffer{}
		stderrWriter, stderrLines := diaglog.NewLineSplitterTee(stderr, func(line string) {
			stderrLog.Println(line)
		})

		stdout := &bytes.Buffer{}

		// fresh slice, "command" is shared between concurrent invocations
		argv := append(append([]string{}, command...), args...)

		//nolint:gosec // command comes from our own config
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = stdout
		cmd.Stderr = stderrWriter

		err := cmd.Run()
		stderrLines.Flush()

		if err != nil {
			return nil, fmt.Errorf(
				"%w: %s: %v: %s",
				ErrSourceUnavailable,
				strings.Join(argv, " "),
				err,
				strings.TrimSpace(stderr.String()))
		}

		return stdout.Bytes(), nil
	}
}

// backend that replays canned outputs keyed by "$ zfs" arguments (joined by space).
// useful for tests & demos
func StaticBackend(outputs map[string]string) Backend {
	return func(_ context.Context, args []string) ([]byte, error) {
		output, found := outputs[strings.Join(args, " ")]
		if !found {
			return nil, fmt.Errorf("%w: no output for: %s", ErrSourceUnavailable, strings.Join(args, " "))
		}

		return []byte(output), nil
	}
}

type Lister struct {
	backend Backend
}

func NewLister(backend Backend) *Lister {
	return &Lister{backend}
}

func (l *Lister) ListVolumes(ctx context.Context) ([]Volume, error) {
	output, err := l.backend(ctx, VolumeListArgs())
	if err != nil {
		return nil, wrapSourceErr(err)
	}

	return ParseVolumes(output)
}

func (l *Lister) ListSnapshots(ctx context.Context) ([]SnapshotOf, error) {
	output, err := l.backend(ctx, SnapshotListArgs())
	if err != nil {
		return nil, wrapSourceErr(err)
	}

	return ParseSnapshots(output)
}

// -H: tab-separated, no header. -p: exact numbers instead of "1.2G"
func VolumeListArgs() []string {
	return []string{"list", "-H", "-p", "-t", "filesystem,volume", "-o", strings.Join(volumeProperties(), ",")}
}

func SnapshotListArgs() []string {
	return []string{"list", "-H", "-p", "-t", "snapshot", "-o", strings.Join(snapshotProperties(), ",")}
}

// custom backends don't necessarily know about our error kinds
func wrapSourceErr(err error) error {
	if errors.Is(err, ErrSourceUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

