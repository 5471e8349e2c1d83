package main

import (
	"os"

	"github.com/function61/gokit/dynversion"
	"github.com/function61/gokit/osutil"
	"github.com/function61/zfsview/pkg/zfsmetrics"
	"github.com/function61/zfsview/pkg/zfsviewcli"
	"github.com/function61/zfsview/pkg/zfsviewconfig"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     os.Args[0],
		Short:   "zfsview: ZFS datasets & snapshots as a tree",
		Version: dynversion.Version,
		// hide the default "completion" subcommand from polluting UX (it can still be used). https://github.com/spf13/cobra/issues/1507
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}

	for _, entrypoint := range zfsviewcli.Entrypoints() {
		rootCmd.AddCommand(entrypoint)
	}

	for _, entrypoint := range zfsviewconfig.Entrypoints() {
		rootCmd.AddCommand(entrypoint)
	}

	rootCmd.AddCommand(zfsmetrics.Entrypoint())

	osutil.ExitIfError(rootCmd.Execute())
}
