package ws

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/spec"
)

// Conn is a client side websocket connection exchanging text frames
type Conn struct {
	conn net.Conn
	rw   io.ReadWriter
}

// bufferedConn reads the handshake leftovers in br before the socket and
// hands br back to the gobwas pool once it is drained
type bufferedConn struct {
	br *bufio.Reader
	io.Reader
	io.Writer
}

func (b *bufferedConn) Read(p []byte) (int, error) {
	if b.br == nil {
		return b.Reader.Read(p)
	}
	if b.br.Buffered() == 0 {
		b.release()
		return b.Reader.Read(p)
	}
	n, _ := b.br.Read(p)
	if b.br.Buffered() == 0 {
		b.release()
	}
	return n, nil
}

func (b *bufferedConn) release() {
	if b.br != nil {
		ws.PutReader(b.br)
		b.br = nil
	}
}

// Connect dials url (ws:// or wss://) and completes the handshake
func Connect(ctx context.Context, url string) (*Conn, error) {
	dialer := ws.Dialer{Timeout: 15 * time.Second}

	t1 := time.Now()
	conn, br, _, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	logrus.Debugf("%s established successfully, latency %s", url, time.Since(t1))

	c := &Conn{conn: conn, rw: conn}
	if br != nil {
		// the server spoke before we read; drain its buffered bytes first
		c.rw = &bufferedConn{br: br, Reader: conn, Writer: conn}
	}
	return c, nil
}

// Dial adapts Connect to the spec.StreamConn interface
func Dial(ctx context.Context, url string) (spec.StreamConn, error) {
	return Connect(ctx, url)
}

// Read returns the next text or binary message. Control frames are
// handled transparently. A ctx deadline becomes the read deadline and
// expiry is reported as context.DeadlineExceeded.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(dl)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	b, _, err := wsutil.ReadServerData(c.rw)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		var closed wsutil.ClosedError
		if errors.As(err, &closed) {
			return nil, io.EOF
		}
		return nil, err
	}
	return b, nil
}

func (c *Conn) Write(ctx context.Context, p []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(dl)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteClientText(c.conn, p)
}

func (c *Conn) Close(code int, reason string) error {
	ws.WriteFrame(c.conn, ws.MaskFrameInPlace(
		ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusCode(code), reason))))
	if b, ok := c.rw.(*bufferedConn); ok {
		b.release()
	}
	return c.conn.Close()
}
