package crtp

import (
	"context"
	"errors"
	"net"
	"time"
)

const udpReadBuf = 64

// udpLink carries one CRTP packet per datagram. Simulated Crazyflies and
// radio bridges speak it.
type udpLink struct {
	conn net.Conn
}

func DialUDP(ctx context.Context, uri URI) (Link, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "udp", uri.HostPort)
	if err != nil {
		return nil, err
	}
	return &udpLink{conn: conn}, nil
}

func (l *udpLink) Send(ctx context.Context, p Packet) error {
	b, err := p.Bytes()
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		l.conn.SetWriteDeadline(dl)
	} else {
		l.conn.SetWriteDeadline(time.Time{})
	}
	_, err = l.conn.Write(b)
	return mapTimeout(err)
}

func (l *udpLink) Receive(ctx context.Context) (Packet, error) {
	if dl, ok := ctx.Deadline(); ok {
		l.conn.SetReadDeadline(dl)
	} else {
		l.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, udpReadBuf)
	for {
		n, err := l.conn.Read(buf)
		if err != nil {
			return Packet{}, mapTimeout(err)
		}
		p, err := ParsePacket(buf[:n])
		if errors.Is(err, ErrEmptyPacket) {
			continue
		}
		return p, err
	}
}

func (l *udpLink) Close() error {
	return l.conn.Close()
}

func mapTimeout(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return context.DeadlineExceeded
	}
	return err
}
