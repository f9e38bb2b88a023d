package crtp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Link is a bidirectional CRTP packet transport to one Crazyflie
type Link interface {
	Send(ctx context.Context, p Packet) error
	Receive(ctx context.Context) (Packet, error)
	Close() error
}

// ErrNoAck is returned when the Crazyflie does not acknowledge a packet
var ErrNoAck = errors.New("crtp: no acknowledgement from crazyflie")

// ErrNoDriver is returned for a known scheme whose driver is not linked in
var ErrNoDriver = errors.New("no link driver registered")

// Driver opens a link for one URI scheme
type Driver func(ctx context.Context, uri URI) (Link, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{SchemeUDP: DialUDP}
)

// Register makes a link driver available for scheme. Drivers that need
// cgo, like the Crazyradio USB driver, register themselves from their
// own package so that importing crtp does not pull them in.
func Register(scheme string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[scheme] = d
}

func driver(scheme string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	if d, ok := drivers[scheme]; ok {
		return d, nil
	}
	if scheme == SchemeRadio {
		return nil, fmt.Errorf("%w for %s (built without USB support)", ErrNoDriver, scheme)
	}
	return nil, ErrUnsupportedScheme
}

// Open connects to the endpoint named by raw and returns the link for it
func Open(ctx context.Context, raw string) (Link, error) {
	uri, err := ParseURI(raw)
	if err != nil {
		return nil, err
	}
	open, err := driver(uri.Scheme)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", raw, err)
	}
	t1 := time.Now()
	link, err := open(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", raw, err)
	}
	logrus.WithField("uri", raw).Debugf("link opened in %s", time.Since(t1))
	return link, nil
}
