// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nttcom/tesig/internal/config"
	"github.com/nttcom/tesig/pkg/logger"
	"github.com/nttcom/tesig/pkg/packet/codec"
)

var (
	jsonFmt  bool
	cfg      config.Config
	log      *zap.Logger
	closeLog = func() {}

	openLog = logger.Open
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tesig",
		Short:        "Decode and encode PCEP and RSVP-TE constructs",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&jsonFmt, "json", "j", false, "output json format")
	rootCmd.PersistentFlags().StringP("config", "c", "tesig.yaml", "path to yaml formatted config file")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newDecodeCmd(), newEncodeCmd(), newPcapCmd())
	rootCmd.PersistentPreRunE = persistentPreRunE
	rootCmd.Run = runRootCmd

	return rootCmd
}

func persistentPreRunE(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	c, err := config.ReadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		c.Global.Log.Debug = true
	}

	l, closeFn, err := openLog(c.Global.Log.Path, c.Global.Log.Name, c.Global.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	cfg, log, closeLog = c, l, closeFn
	return nil
}

// run executes cmd and closes the log whether or not the command failed.
func run(cmd *cobra.Command) error {
	defer func() {
		closeLog()
		closeLog = func() {}
	}()
	return cmd.Execute()
}

// decodeOptions hands the logger to the decoders when debug logging is on.
func decodeOptions() []codec.Opt {
	if !cfg.Global.Log.Debug {
		return nil
	}
	return []codec.Opt{codec.WithLogger(log)}
}

func runRootCmd(cmd *cobra.Command, args []string) {
	cmd.HelpFunc()(cmd, args)
}
