package crtp

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	radioMaxResend = 10
	radioAckBuf    = 64
)

var errNoData = errors.New("no downlink data")

// RadioOut is the bulk OUT endpoint of a Crazyradio
type RadioOut interface {
	WriteContext(ctx context.Context, b []byte) (int, error)
}

// RadioIn is the bulk IN endpoint of a Crazyradio, yielding one ack frame
// per read: a status byte followed by the downlink payload
type RadioIn interface {
	ReadContext(ctx context.Context, b []byte) (int, error)
}

// radioLink drives a Crazyradio PA. Every uplink packet is answered by an
// ack frame whose payload carries the next downlink packet, so the link
// polls with null packets while waiting for data.
type radioLink struct {
	out    RadioOut
	in     RadioIn
	closer io.Closer
	mu     sync.Mutex
	inbox  []Packet
}

// NewRadioLink runs the Crazyradio ack protocol over configured endpoints.
// closer releases the device when the link is closed.
func NewRadioLink(out RadioOut, in RadioIn, closer io.Closer) Link {
	return &radioLink{out: out, in: in, closer: closer}
}

// exchange sends raw and queues the payload carried back by the ack
func (l *radioLink) exchange(ctx context.Context, raw []byte) error {
	ack := make([]byte, radioAckBuf)
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Millisecond), radioMaxResend), ctx)
	return backoff.Retry(func() error {
		if _, err := l.out.WriteContext(ctx, raw); err != nil {
			return backoff.Permanent(err)
		}
		n, err := l.in.ReadContext(ctx, ack)
		if err != nil {
			return backoff.Permanent(err)
		}
		if n == 0 || ack[0]&0x01 == 0 {
			logrus.Trace("crazyradio: no ack, resending")
			return ErrNoAck
		}
		if n > 1 {
			p, err := ParsePacket(ack[1:n])
			if err == nil && !p.IsNull() {
				l.mu.Lock()
				l.inbox = append(l.inbox, p)
				l.mu.Unlock()
			}
		}
		return nil
	}, bo)
}

func (l *radioLink) pop() (p Packet, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbox) == 0 {
		return
	}
	p, l.inbox = l.inbox[0], l.inbox[1:]
	return p, true
}

func (l *radioLink) Send(ctx context.Context, p Packet) error {
	b, err := p.Bytes()
	if err != nil {
		return err
	}
	return l.exchange(ctx, b)
}

func (l *radioLink) Receive(ctx context.Context) (p Packet, err error) {
	if q, ok := l.pop(); ok {
		return q, nil
	}
	poll := backoff.NewExponentialBackOff()
	poll.InitialInterval = time.Millisecond
	poll.MaxInterval = 20 * time.Millisecond
	poll.MaxElapsedTime = 0
	err = backoff.Retry(func() error {
		if _err := l.exchange(ctx, []byte{nullHeader}); _err != nil {
			return backoff.Permanent(_err)
		}
		if q, ok := l.pop(); ok {
			p = q
			return nil
		}
		return errNoData
	}, backoff.WithContext(poll, ctx))
	return
}

func (l *radioLink) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
