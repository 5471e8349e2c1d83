// Configuration file for zfsview
package zfsviewconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/function61/gokit/fileexists"
	"github.com/function61/gokit/jsonfile"
	"github.com/function61/gokit/osutil"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

const (
	configFilename = "zfsview-config.json"
)

type Config struct {
	ZfsCommand      []string `json:"zfs_command"`      // example: ["sudo", "zfs"]
	RefreshSchedule string   `json:"refresh_schedule"` // cron expression, seconds optional. "" = manual refresh only
	ShowSnapshots   bool     `json:"show_snapshots"`
	MetricsAddr     string   `json:"metrics_addr"`
	NameIndex       bool     `json:"name_index"` // faster parent lookups for large pools
}

func Defaults() *Config {
	return &Config{
		ZfsCommand:      []string{"zfs"},
		RefreshSchedule: "",
		ShowSnapshots:   true,
		MetricsAddr:     ":9134",
		NameIndex:       false,
	}
}

// accepts same syntax as robfig/cron with optional seconds, plus descriptors like "@every 30s"
var ScheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (c *Config) Validate() error {
	if len(c.ZfsCommand) == 0 || c.ZfsCommand[0] == "" {
		return errors.New("zfs_command cannot be empty")
	}

	if c.RefreshSchedule != "" {
		if _, err := ScheduleParser.Parse(c.RefreshSchedule); err != nil {
			return fmt.Errorf("refresh_schedule: %w", err)
		}
	}

	return nil
}

// config file is optional: defaults are used if it does not exist
func Read() (*Config, error) {
	confPath, err := FilePath()
	if err != nil {
		return nil, fmt.Errorf("zfsview config: %w", err)
	}

	return ReadWithPath(confPath)
}

func ReadWithPath(confPath string) (*Config, error) {
	conf := Defaults()

	exists, err := fileexists.Exists(confPath)
	if err != nil {
		return nil, fmt.Errorf("zfsview config: %w", err)
	}

	if exists {
		if err := jsonfile.Read(confPath, conf, true); err != nil {
			return nil, fmt.Errorf("zfsview config: %w", err)
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("zfsview config: %w", err)
	}

	return conf, nil
}

func WriteWithPath(conf *Config, confPath string) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	return jsonfile.Write(confPath, conf)
}

func FilePath() (string, error) {
	usersHomeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(usersHomeDirectory, configFilename), nil
}

func Entrypoints() []*cobra.Command {
	return []*cobra.Command{
		initEntrypoint(),
		printEntrypoint(),
	}
}

func initEntrypoint() *cobra.Command {
	conf := Defaults()

	cmd := &cobra.Command{
		Use:   "config-init",
		Short: "Writes a configuration file with defaults (adjust with flags)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			confPath, err := FilePath()
			osutil.ExitIfError(err)

			exists, err := fileexists.Exists(confPath)
			osutil.ExitIfError(err)

			if exists {
				osutil.ExitIfError(errors.New("config file already exists"))
			}

			osutil.ExitIfError(WriteWithPath(conf, confPath))

			fmt.Printf("wrote %s\n", confPath)
		},
	}

	cmd.Flags().StringSliceVarP(&conf.ZfsCommand, "zfs-command", "", conf.ZfsCommand, "Command for running zfs, e.g. sudo,zfs")
	cmd.Flags().StringVarP(&conf.RefreshSchedule, "refresh", "", conf.RefreshSchedule, "Refresh schedule (cron expression, e.g. @every 1m)")
	cmd.Flags().BoolVarP(&conf.ShowSnapshots, "snapshots", "", conf.ShowSnapshots, "Show snapshots by default")
	cmd.Flags().StringVarP(&conf.MetricsAddr, "metrics-addr", "", conf.MetricsAddr, "Listen address for metrics")
	cmd.Flags().BoolVarP(&conf.NameIndex, "name-index", "", conf.NameIndex, "Index dataset names (for pools with lots of datasets)")

	return cmd
}

func printEntrypoint() *cobra.Command {
	return &cobra.Command{
		Use:   "config-print",
		Short: "Prints path to config file & its contents",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			confPath, err := FilePath()
			osutil.ExitIfError(err)

			fmt.Printf("file: %s\n", confPath)

			exists, err := fileexists.Exists(confPath)
			osutil.ExitIfError(err)

			if !exists {
				fmt.Printf(".. does not exist (using defaults). To configure, run:\n    $ %s config-init\n", os.Args[0])
				return
			}

			file, err := os.Open(confPath)
			osutil.ExitIfError(err)
			defer file.Close()

			_, err = io.Copy(os.Stdout, file)
			osutil.ExitIfError(err)
		},
	}
}
