package zfsmetrics

import (
	"context"
	"log"
	"net/http"

	"github.com/function61/gokit/httputils"
	"github.com/function61/gokit/logex"
	"github.com/function61/gokit/osutil"
	"github.com/function61/gokit/taskrunner"
	"github.com/function61/zfsview/pkg/zfsbrowser"
	"github.com/function61/zfsview/pkg/zfsviewconfig"
	"github.com/spf13/cobra"
)

// used if config doesn't specify a schedule
const defaultRefreshSchedule = "@every 1m"

func Entrypoint() *cobra.Command {
	addr := ""

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serves dataset sizes as Prometheus metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			conf, err := zfsviewconfig.Read()
			osutil.ExitIfError(err)

			if addr != "" {
				conf.MetricsAddr = addr
			}

			osutil.ExitIfError(serve(
				osutil.CancelOnInterruptOrTerminate(rootLogger),
				conf,
				rootLogger))
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "", addr, "Address to listen on (overrides config)")

	return cmd
}

func serve(ctx context.Context, conf *zfsviewconfig.Config, rootLogger *log.Logger) error {
	controllerConf := *conf
	controllerConf.ShowSnapshots = true // for snapshot counts
	if controllerConf.RefreshSchedule == "" {
		controllerConf.RefreshSchedule = defaultRefreshSchedule
	}

	ctrl, err := zfsbrowser.NewFromConfig(&controllerConf, logex.Prefix("browser", rootLogger))
	if err != nil {
		return err
	}

	return serveWith(ctx, ctrl, conf.MetricsAddr, rootLogger)
}

func serveWith(ctx context.Context, ctrl *zfsbrowser.Controller, addr string, rootLogger *log.Logger) error {
	exporter := NewExporter()

	routes := http.NewServeMux()
	routes.Handle("/metrics", exporter.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: routes,
	}

	tasks := taskrunner.New(ctx, rootLogger)

	tasks.Start("browser", ctrl.Run)

	tasks.Start("exporter", func(ctx context.Context) error {
		// first data without waiting for the schedule
		go ctrl.Refresh()

		for {
			select {
			case <-ctx.Done():
				return nil
			case event := <-ctrl.Events():
				exporter.Observe(event)
			}
		}
	})

	tasks.Start("listener "+addr, func(ctx context.Context) error {
		return httputils.RemoveGracefulServerClosedError(srv.ListenAndServe())
	})

	tasks.Start("listenershutdowner", httputils.ServerShutdownTask(srv))

	return tasks.Wait()
}
