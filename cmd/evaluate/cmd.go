package evaluate

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/config"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/evaluate"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/transport/ws"
)

var Cmd *cobra.Command

var dialer evaluate.Dialer = ws.Dial

func init() {
	Cmd = newCommand()
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Test policy switching against a running UI server",
		Example: `  # Enable policy switching with default threshold (0.3m)
  rltctl evaluate \
      --nav-actor actors/position_to_position_at_2m_actor_2400000.h5 \
      --hover-actor actors/hover_actors/hoverActor_000000000300000.h5

  # Enable with custom threshold
  rltctl evaluate \
      --nav-actor actors/position_to_position_at_2m_actor_2400000.h5 \
      --hover-actor actors/hover_actors/hoverActor_000000000300000.h5 \
      --threshold 0.5

  # Disable policy switching
  rltctl evaluate --disable`,
		Args:    cobra.NoArgs,
		PreRunE: initAction,
		RunE:    startAction,
	}
	cmd.Flags().String("host", spec.DefaultEvaluateHost, "UI server host")
	cmd.Flags().Int("port", spec.DefaultEvaluatePort, "UI server port")
	cmd.Flags().String("nav-actor", "", "Path to navigation actor (e.g., actors/position_to_position_at_2m_actor_2400000.h5)")
	cmd.Flags().String("hover-actor", "", "Path to hover actor (e.g., actors/hover_actors/hoverActor_000000000300000.h5)")
	cmd.Flags().Float64("threshold", spec.DefaultEvaluateThreshold, "Distance threshold for switching in meters")
	cmd.Flags().Bool("disable", false, "Disable policy switching")
	return cmd
}

func initAction(cmd *cobra.Command, args []string) error {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	ll, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(ll)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

type options struct {
	driver               evaluate.Options
	navActor, hoverActor string
	threshold            float64
	disable              bool
}

func startAction(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	opts, err := processOptions(cmd)
	if err != nil {
		return err
	}

	if !opts.disable && (opts.navActor == "" || opts.hoverActor == "") {
		cmd.Help()
		fmt.Fprintf(out, "\n✗ Error: %s\n", spec.Sentence(spec.ErrMissingActors))
		return fmt.Errorf("%w: %w", spec.ErrReported, spec.ErrMissingActors)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d := evaluate.NewDriver(opts.driver, out, dialer)
	if opts.disable {
		err = d.DisablePolicySwitching(ctx)
	} else {
		err = d.TestPolicySwitching(ctx, opts.navActor, opts.hoverActor, opts.threshold)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", spec.ErrReported, err)
	}
	return nil
}

func processOptions(cmd *cobra.Command) (opts options, err error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return
	}

	opts.driver.Host = cfg.Evaluate.Host
	if cmd.Flags().Changed("host") {
		if opts.driver.Host, err = cmd.Flags().GetString("host"); err != nil {
			return
		}
	}
	opts.driver.Port = cfg.Evaluate.Port
	if cmd.Flags().Changed("port") {
		if opts.driver.Port, err = cmd.Flags().GetInt("port"); err != nil {
			return
		}
	}
	opts.threshold = *cfg.Evaluate.Threshold
	if cmd.Flags().Changed("threshold") {
		if opts.threshold, err = cmd.Flags().GetFloat64("threshold"); err != nil {
			return
		}
	}
	if opts.navActor, err = cmd.Flags().GetString("nav-actor"); err != nil {
		return
	}
	if opts.hoverActor, err = cmd.Flags().GetString("hover-actor"); err != nil {
		return
	}
	if opts.disable, err = cmd.Flags().GetBool("disable"); err != nil {
		return
	}
	opts.driver.ReplyTimeout = config.Duration(cfg.Evaluate.ReplyTimeout)
	opts.driver.StepPause = config.Duration(cfg.Evaluate.StepPause)
	return
}
