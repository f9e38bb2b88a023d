// Package evaluate drives the policy-switching feature of a running UI
// server over its websocket control channel.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
)

// Dialer opens a websocket connection to url
type Dialer func(ctx context.Context, url string) (spec.StreamConn, error)

// ErrStepFailed is returned when a command of a flow could not be delivered
var ErrStepFailed = errors.New("command not delivered")

const maxResponsePreview = 100

var banner = strings.Repeat("=", 70)

type Options struct {
	Host         string
	Port         int
	ReplyTimeout time.Duration
	StepPause    time.Duration
}

type Driver struct {
	opts Options
	out  io.Writer
	dial Dialer
	log  *logrus.Entry
}

func NewDriver(opts Options, out io.Writer, dial Dialer) *Driver {
	return &Driver{
		opts: opts,
		out:  out,
		dial: dial,
		log:  spec.RunLogger(),
	}
}

// URL is the UI server websocket address
func (d *Driver) URL() string {
	return "ws://" + net.JoinHostPort(d.opts.Host, strconv.Itoa(d.opts.Port))
}

func (d *Driver) printf(format string, a ...any) {
	fmt.Fprintf(d.out, format, a...)
}

// SendCommand delivers msg on a fresh connection and waits for at most
// one reply. A missing reply is normal; only connection or send failures
// return false.
func (d *Driver) SendCommand(ctx context.Context, url string, msg spec.Message) bool {
	log := d.log.WithField(spec.Action.String(), msg.Data.Action)
	if err := d.sendCommand(ctx, url, msg, log); err != nil {
		d.printf("✗ Error: %s\n", err)
		log.Debugf("send failed: %s", err)
		return false
	}
	return true
}

func (d *Driver) sendCommand(ctx context.Context, url string, msg spec.Message, log *logrus.Entry) error {
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	conn, err := d.dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close(int(ws.StatusNormalClosure), "")

	if err = conn.Write(ctx, b); err != nil {
		return err
	}
	d.printf("✓ Sent: %s\n", msg.Data.Action)
	log.Debugf("sent %s", b)

	rctx, cancel := context.WithTimeout(ctx, d.opts.ReplyTimeout)
	defer cancel()
	reply, err := conn.Read(rctx)
	if err != nil {
		if isTimeout(rctx, err) {
			d.printf("  (No response received, which is normal)\n")
			return nil
		}
		return err
	}
	d.printf("  Response: %s\n", spec.Truncate(string(reply), maxResponsePreview))
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// TestPolicySwitching restarts evaluation with the navigation actor, then
// enables switching to the hover actor below threshold. The second
// command is never sent if the first one fails.
func (d *Driver) TestPolicySwitching(ctx context.Context, navActor, hoverActor string, threshold float64) error {
	url := d.URL()
	t := spec.FormatFloat(threshold)

	d.printf("%s\nPOLICY SWITCHING TEST\n%s\n", banner, banner)
	d.printf("Server: %s\n", url)
	d.printf("Navigation Actor: %s\n", navActor)
	d.printf("Hover Actor: %s\n", hoverActor)
	d.printf("Threshold: %sm\n", t)
	d.printf("%s\n\n", banner)

	d.printf("Step 1: Loading navigation actor...\n")
	if !d.SendCommand(ctx, url, spec.NewRestartMessage(navActor)) {
		d.printf("\n✗ Failed to load navigation actor. Is the UI server running?\n")
		d.printf("  Try: OPENBLAS_NUM_THREADS=1 ./build/src/ui %s %d\n", d.opts.Host, d.opts.Port)
		return fmt.Errorf("restart: %w", ErrStepFailed)
	}

	if err := sleep(ctx, d.opts.StepPause); err != nil {
		return err
	}

	d.printf("\nStep 2: Enabling policy switching...\n")
	if !d.SendCommand(ctx, url, spec.NewEnablePolicySwitchingMessage(hoverActor, threshold)) {
		d.printf("\n✗ Failed to enable policy switching\n")
		return fmt.Errorf("enable policy switching: %w", ErrStepFailed)
	}

	d.printf("\n%s\n✓ Policy switching enabled successfully!\n%s\n", banner, banner)
	d.printf("\nThe drone will now:\n")
	d.printf("  • Use NAVIGATION actor when distance > %sm from target\n", t)
	d.printf("  • Use HOVER actor when distance < %sm from target\n", t)
	d.printf("\nWatch the UI to see the switching in action!\n")
	d.printf("\nTo disable policy switching, run:\n")
	d.printf("  rltctl evaluate --disable\n")
	d.log.Infof("policy switching enabled, threshold %sm", t)
	return nil
}

// DisablePolicySwitching sends the single disable command
func (d *Driver) DisablePolicySwitching(ctx context.Context) error {
	d.printf("%s\nDISABLING POLICY SWITCHING\n%s\n", banner, banner)
	if !d.SendCommand(ctx, d.URL(), spec.NewDisablePolicySwitchingMessage()) {
		d.printf("\n✗ Failed to disable policy switching\n")
		return fmt.Errorf("disable policy switching: %w", ErrStepFailed)
	}
	d.printf("\n✓ Policy switching disabled\n")
	return nil
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
