package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/cmd/evaluate"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/cmd/radio"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
)

func main() {
	cmd := &cobra.Command{
		Use:           "rltctl",
		Short:         "Policy switching tools for RL-Flight-Crazyflie",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(radio.Cmd)
	cmd.AddCommand(evaluate.Cmd)

	cmd.PersistentFlags().String("log-level", "warning", "logrus logger level")
	cmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/rltctl/rltctl.yml)")

	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, spec.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
