// Package configurator sets and inspects the policy-switching parameters
// of a Crazyflie.
package configurator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/crtp"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/param"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
)

// Params is the parameter access the configurator needs from a connection
type Params interface {
	SetValue(ctx context.Context, name string, value float64) error
	RequestUpdate(ctx context.Context, name string) error
	Value(name string) (float64, error)
}

// Session is a connected Crazyflie, released by Close
type Session interface {
	Params
	Close() error
}

// Connector opens a Session to the Crazyflie at uri
type Connector func(ctx context.Context, uri string) (Session, error)

type Options struct {
	URI        string
	WritePause time.Duration
	Settle     time.Duration
	UpdateWait time.Duration
}

type Configurator struct {
	opts    Options
	out     io.Writer
	connect Connector
	log     *logrus.Entry
}

func New(opts Options, out io.Writer, connect Connector) *Configurator {
	return &Configurator{
		opts:    opts,
		out:     out,
		connect: connect,
		log:     spec.RunLogger().WithField(spec.URI.String(), opts.URI),
	}
}

type session struct {
	*param.Client
	link crtp.Link
}

func (s *session) Close() error {
	return s.link.Close()
}

// Dial returns a Connector speaking CRTP over the link named by the uri
func Dial(opts param.Options) Connector {
	return func(ctx context.Context, uri string) (Session, error) {
		link, err := crtp.Open(ctx, uri)
		if err != nil {
			return nil, err
		}
		c, err := param.Connect(ctx, link, opts)
		if err != nil {
			link.Close()
			return nil, err
		}
		return &session{Client: c, link: link}, nil
	}
}

func (c *Configurator) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// open runs fn with a connected session and always releases it
func (c *Configurator) open(ctx context.Context, fn func(Params) error) error {
	c.printf("Connecting to %s...\n", c.opts.URI)
	s, err := c.connect(ctx, c.opts.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.log.Debugf("close: %s", err)
		}
	}()
	c.log.Debug("connected")
	return fn(s)
}

// Configure writes the enable flag (and the threshold when enabling),
// then reads both back and prints the resulting configuration
func (c *Configurator) Configure(ctx context.Context, enable bool, threshold float64) error {
	return c.open(ctx, func(p Params) error {
		c.printf("✓ Connected to Crazyflie\n")

		flag := 0.0
		if enable {
			flag = 1
		}
		if err := p.SetValue(ctx, spec.ParamPolicySwitchEnable, flag); err != nil {
			return err
		}
		if err := sleep(ctx, c.opts.WritePause); err != nil {
			return err
		}

		if enable {
			if err := p.SetValue(ctx, spec.ParamPolicySwitchThreshold, threshold); err != nil {
				return err
			}
			if err := sleep(ctx, c.opts.WritePause); err != nil {
				return err
			}
			c.printf("✓ Policy switching ENABLED\n")
			c.printf("✓ Threshold set to %sm\n", spec.FormatFloat(threshold))
		} else {
			c.printf("✓ Policy switching DISABLED\n")
		}

		if err := sleep(ctx, c.opts.Settle); err != nil {
			return err
		}
		c.printf("\nCurrent Configuration:\n")

		psEnable, psThresh, err := c.read(ctx, p)
		if err != nil {
			return err
		}
		c.printf("  ps_enable: %s (0=off, 1=on)\n", spec.FormatFloat(psEnable))
		c.printf("  ps_thresh: %sm\n", spec.FormatFloat(psThresh))

		if enable {
			t := spec.FormatFloat(psThresh)
			c.printf("\nPolicy Switching Active:\n")
			c.printf("  Distance > %sm → Navigation actor\n", t)
			c.printf("  Distance < %sm → Hover actor\n", t)
			c.printf("  Target: %s\n", targetString())
		}

		c.printf("\n✓ Configuration complete!\n")
		c.log.WithField("enable", enable).Info("policy switching configured")
		return nil
	})
}

// CheckStatus reads and prints the current configuration without writing
func (c *Configurator) CheckStatus(ctx context.Context) error {
	return c.open(ctx, func(p Params) error {
		c.printf("✓ Connected to Crazyflie\n\n")

		psEnable, psThresh, err := c.read(ctx, p)
		if err != nil {
			return err
		}

		on := psEnable != 0
		state := "✗ OFF"
		if on {
			state = "✓ ON"
		}
		t := spec.FormatFloat(psThresh)
		c.printf("Policy Switching Status:\n")
		c.printf("  Enable: %s %s\n", spec.FormatFloat(psEnable), state)
		c.printf("  Threshold: %sm\n", t)

		if on {
			c.printf("\n  Distance > %sm → Navigation Actor (obstacle avoidance)\n", t)
			c.printf("  Distance < %sm → Hover Actor (stable hovering)\n", t)
			c.printf("  Target Position: %s\n", targetString())
		} else {
			c.printf("\n  Using single actor (navigation)\n")
		}
		return nil
	})
}

// read requests both parameters, waits for them to land and returns them
func (c *Configurator) read(ctx context.Context, p Params) (psEnable, psThresh float64, err error) {
	if err = p.RequestUpdate(ctx, spec.ParamPolicySwitchEnable); err != nil {
		return
	}
	if err = p.RequestUpdate(ctx, spec.ParamPolicySwitchThreshold); err != nil {
		return
	}
	if err = sleep(ctx, c.opts.UpdateWait); err != nil {
		return
	}
	if psEnable, err = p.Value(spec.ParamPolicySwitchEnable); err != nil {
		return
	}
	psThresh, err = p.Value(spec.ParamPolicySwitchThreshold)
	return
}

// PrintTroubleshooting reports a failed operation to the operator
func PrintTroubleshooting(w io.Writer, err error) {
	fmt.Fprintf(w, "\nError: %s\n", err)
	fmt.Fprintln(w, "\nTroubleshooting:")
	fmt.Fprintln(w, "  1. Ensure Crazyflie is powered on")
	fmt.Fprintln(w, "  2. Check radio dongle connection (lsusb | grep Crazyradio)")
	fmt.Fprintln(w, "  3. Verify URI is correct")
	fmt.Fprintln(w, "  4. Check USB permissions (udev rule for 1915:7777) or retry with sudo")
}

func targetString() string {
	p := spec.TargetPosition
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", p[0], p[1], p[2])
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
