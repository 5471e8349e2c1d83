// Command line interface: one-shot listing, interactive viewer and schema listing
package zfsviewcli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/osutil"
	"github.com/function61/zfsview/pkg/rowschema"
	"github.com/function61/zfsview/pkg/zfsbrowser"
	"github.com/function61/zfsview/pkg/zfsdataset"
	"github.com/function61/zfsview/pkg/zfsrender"
	"github.com/function61/zfsview/pkg/zfsviewconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func Entrypoints() []*cobra.Command {
	return []*cobra.Command{
		listEntrypoint(),
		watchEntrypoint(),
		columnsEntrypoint(),
	}
}

func listEntrypoint() *cobra.Command {
	snapshots := false
	noSnapshots := false

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lists datasets (and their snapshots) as a tree",
		Args:  cobra.NoArgs,
		Run: wrapWithStopSupport(func(ctx context.Context, conf *zfsviewconfig.Config, logger *log.Logger) error {
			switch {
			case snapshots && noSnapshots:
				return fmt.Errorf("--snapshots and --no-snapshots are mutually exclusive")
			case snapshots:
				conf.ShowSnapshots = true
			case noSnapshots:
				conf.ShowSnapshots = false
			}

			return list(ctx, conf, os.Stdout, logger)
		}),
	}

	cmd.Flags().BoolVarP(&snapshots, "snapshots", "s", snapshots, "Show snapshots (overrides config)")
	cmd.Flags().BoolVarP(&noSnapshots, "no-snapshots", "", noSnapshots, "Hide snapshots (overrides config)")

	return cmd
}

func watchEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactive tree viewer (s = toggle snapshots, r = refresh, q = quit)",
		Args:  cobra.NoArgs,
		Run: wrapWithStopSupport(func(ctx context.Context, conf *zfsviewconfig.Config, logger *log.Logger) error {
			if !zfsrender.IsTerminal() { // e.g. piped to a file
				return list(ctx, conf, os.Stdout, logger)
			}

			// termbox owns the screen, so log lines would garble it
			return watch(ctx, conf, logex.Discard)
		}),
	}
}

func columnsEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "Shows columns derived from dataset & snapshot fields",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printColumns(os.Stdout)
		},
	}
}

func list(ctx context.Context, conf *zfsviewconfig.Config, output io.Writer, logger *log.Logger) error {
	conf.RefreshSchedule = "" // just one refresh

	ctrl, err := zfsbrowser.NewFromConfig(conf, logger)
	if err != nil {
		return err
	}

	return printOnce(ctx, ctrl, output)
}

// a failed snapshot listing still prints the volumes, but returns the error
func printOnce(ctx context.Context, ctrl *zfsbrowser.Controller, output io.Writer) error {
	view, err := runOnce(ctx, ctrl)
	if view == nil {
		return err
	}

	zfsrender.Table(output, *view)

	if err != nil {
		return err // its diagnostic would only repeat the error
	}

	for _, diagnostic := range view.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", diagnostic.String())
	}

	return nil
}

// refreshes once and returns the view once snapshots have been attached. if volumes were
// listed but snapshots were not, returns the volumes-only view along with the error.
func runOnce(ctx context.Context, ctrl *zfsbrowser.Controller) (*zfsbrowser.View, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = ctrl.Run(ctx)
	}()

	ctrl.Refresh()

	volumesListed := false

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event := <-ctrl.Events():
			switch event.Kind {
			case zfsbrowser.EventVolumesUpdated:
				volumesListed = true
			case zfsbrowser.EventRefreshFailed:
				if volumesListed {
					return &event.View, event.Err
				}

				return nil, event.Err
			case zfsbrowser.EventSnapshotsAttached:
				return &event.View, nil
			}
		}
	}
}

func watch(ctx context.Context, conf *zfsviewconfig.Config, logger *log.Logger) error {
	ctrl, err := zfsbrowser.NewFromConfig(conf, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	controllerDone := make(chan error, 1)
	go func() {
		controllerDone <- ctrl.Run(ctx)
	}()

	viewerErr := zfsrender.RunViewer(ctx, ctrl)

	cancel()

	if err := <-controllerDone; err != nil {
		return err
	}

	return viewerErr
}

func printColumns(output io.Writer) {
	table := tablewriter.NewWriter(output)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Kind", "#", "Property", "Title", "Type"})

	table.AppendBulk(schemaRows("volume", zfsdataset.VolumeFields, zfsdataset.VolumeSchema))
	table.AppendBulk(schemaRows("snapshot", zfsdataset.SnapshotFields, zfsdataset.SnapshotSchema))

	table.Render()
}

func schemaRows[T any](kind string, fields []rowschema.Field[T], schema *rowschema.Schema[T]) [][]string {
	rows := [][]string{}
	for i, column := range schema.Columns() {
		rows = append(rows, []string{
			kind,
			strconv.Itoa(column.Index),
			fields[i].Name,
			column.Title,
			column.Type.String(),
		})
	}

	return rows
}

func wrapWithStopSupport(
	fn func(ctx context.Context, conf *zfsviewconfig.Config, logger *log.Logger) error,
) func(*cobra.Command, []string) {
	return func(_ *cobra.Command, _ []string) {
		rootLogger := logex.StandardLogger()

		conf, err := zfsviewconfig.Read()
		osutil.ExitIfError(err)

		osutil.ExitIfError(fn(
			osutil.CancelOnInterruptOrTerminate(rootLogger),
			conf,
			rootLogger))
	}
}
