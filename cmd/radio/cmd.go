package radio

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/config"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/configurator"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/param"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
)

var Cmd *cobra.Command

// connector opens crazyflie sessions; replaced in tests
var connector = func(opts param.Options) configurator.Connector {
	return configurator.Dial(opts)
}

func init() {
	Cmd = newCommand()
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "radio",
		Short: "Configure policy switching on the Crazyflie over the radio",
		Long: `Enables and configures the policy switching parameters (rlt.ps_enable,
rlt.ps_thresh) on the Crazyflie. Use this after flashing firmware with
policy switching support.`,
		Example: `  Enable with default threshold (0.5m):
    rltctl radio --enable

  Enable with custom threshold:
    rltctl radio --enable --threshold 0.6

  Disable policy switching:
    rltctl radio --disable

  Check current status:
    rltctl radio --status

  Custom URI:
    rltctl radio --enable --uri radio://0/80/2M/E7E7E7E7E7`,
		Args:    cobra.NoArgs,
		PreRunE: initAction,
		RunE:    startAction,
	}
	cmd.Flags().String("uri", spec.DefaultRadioURI, "Crazyflie URI")
	cmd.Flags().Bool("enable", false, "Enable policy switching")
	cmd.Flags().Bool("disable", false, "Disable policy switching")
	cmd.Flags().Float64("threshold", spec.DefaultRadioThreshold, "Distance threshold in meters")
	cmd.Flags().Bool("status", false, "Check current configuration")
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
	enable, disable, status bool
	threshold               float64
	cfg                     configurator.Options
	params                  param.Options
}

func startAction(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	opts, err := processOptions(cmd)
	if err != nil {
		return err
	}

	if opts.enable && opts.disable {
		fmt.Fprintf(out, "Error: %s\n", spec.Sentence(spec.ErrConflictingModes))
		return fmt.Errorf("%w: %w", spec.ErrReported, spec.ErrConflictingModes)
	}
	if !(opts.enable || opts.disable || opts.status) {
		fmt.Fprintf(out, "Error: %s\n", spec.Sentence(spec.ErrNoMode))
		cmd.Help()
		return fmt.Errorf("%w: %w", spec.ErrReported, spec.ErrNoMode)
	}
	if !spec.ThresholdInRange(opts.threshold) {
		fmt.Fprintf(out, "Warning: Threshold outside recommended range (%.1f-%.1fm)\n",
			spec.MinRecommendedThreshold, spec.MaxRecommendedThreshold)
		logrus.Warnf("threshold %sm outside recommended range", spec.FormatFloat(opts.threshold))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := configurator.New(opts.cfg, out, connector(opts.params))
	if opts.status {
		err = c.CheckStatus(ctx)
	} else {
		err = c.Configure(ctx, opts.enable, opts.threshold)
	}
	if err != nil {
		configurator.PrintTroubleshooting(out, err)
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

	if opts.enable, err = cmd.Flags().GetBool("enable"); err != nil {
		return
	}
	if opts.disable, err = cmd.Flags().GetBool("disable"); err != nil {
		return
	}
	if opts.status, err = cmd.Flags().GetBool("status"); err != nil {
		return
	}

	opts.cfg.URI = cfg.Radio.URI
	if cmd.Flags().Changed("uri") {
		if opts.cfg.URI, err = cmd.Flags().GetString("uri"); err != nil {
			return
		}
	}
	opts.threshold = *cfg.Radio.Threshold
	if cmd.Flags().Changed("threshold") {
		if opts.threshold, err = cmd.Flags().GetFloat64("threshold"); err != nil {
			return
		}
	}

	opts.cfg.WritePause = config.Duration(cfg.Radio.WritePause)
	opts.cfg.Settle = config.Duration(cfg.Radio.Settle)
	opts.cfg.UpdateWait = config.Duration(cfg.Radio.UpdateWait)
	opts.params.Timeout = config.Duration(cfg.Radio.Timeout)
	opts.params.Cache = param.FileCache{Dir: cfg.Radio.Cache}
	return
}
