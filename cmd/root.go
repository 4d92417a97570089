package cmd

import (
	"fmt"
	"os"

	"redis-go/cmd/util"
	"redis-go/logging"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var plog = logger.GetLogger("cmd")

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "redispipe",
		Short: "pipelining RESP client",
		Long: fmt.Sprintf(`redispipe (v%s)

Sends commands to a Redis compatible server over a single pipelined
connection and matches every reply to the command it answers.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of redispipe",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("redispipe v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(execCmd)
	RootCmd.AddCommand(perfCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(versionCmd)

	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warn", util.WrapString("Log level (debug, info, warn, error)"))
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return logging.Init(viper.GetString("log-level"))
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
