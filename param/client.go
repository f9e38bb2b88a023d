// Package param reads and writes Crazyflie firmware parameters over a
// CRTP link.
package param

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/crtp"
)

// Param port channels
const (
	chanTOC   crtp.Channel = 0
	chanRead  crtp.Channel = 1
	chanWrite crtp.Channel = 2
)

// TOC channel commands (protocol v2, 16-bit ids)
const (
	cmdTOCItemV2 = 0x02
	cmdTOCInfoV2 = 0x03
)

const DefaultTimeout = time.Second

var (
	ErrUnknownParam = errors.New("unknown parameter")
	ErrReadOnly     = errors.New("parameter is read-only")
	ErrNotUpdated   = errors.New("parameter value not yet received")
)

type Options struct {
	// Timeout bounds each request/reply exchange. Default is 1s.
	Timeout time.Duration
	// Cache stores downloaded TOCs. Optional.
	Cache Cache
}

// Client accesses the parameter subsystem of one connected Crazyflie.
// It is not safe for concurrent requests.
type Client struct {
	link   crtp.Link
	opts   Options
	toc    *TOC
	mu     sync.RWMutex
	values map[string]float64
}

// Connect downloads (or loads from cache) the parameter TOC
func Connect(ctx context.Context, link crtp.Link, opts Options) (*Client, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	c := &Client{link: link, opts: opts, values: make(map[string]float64)}
	if err := c.fetchTOC(ctx); err != nil {
		return nil, fmt.Errorf("param toc: %w", err)
	}
	return c, nil
}

func (c *Client) TOC() *TOC {
	return c.toc
}

func (c *Client) fetchTOC(ctx context.Context) error {
	info, err := c.request(ctx, crtp.NewPacket(crtp.PortParam, chanTOC, cmdTOCInfoV2),
		func(p crtp.Packet) bool {
			return p.Channel == chanTOC && len(p.Data) >= 7 && p.Data[0] == cmdTOCInfoV2
		})
	if err != nil {
		return err
	}
	count := binary.LittleEndian.Uint16(info.Data[1:3])
	crc := binary.LittleEndian.Uint32(info.Data[3:7])
	logrus.Debugf("param toc has %d entries, crc %08X", count, crc)

	if c.opts.Cache != nil {
		elements, err := c.opts.Cache.Load(crc)
		if err == nil && len(elements) == int(count) {
			c.toc = NewTOC(crc, elements)
			return nil
		}
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			logrus.Warnf("toc cache: %s", err)
		}
	}

	elements := make([]Element, 0, count)
	for id := uint16(0); id < count; id++ {
		lo, hi := byte(id), byte(id>>8)
		reply, err := c.request(ctx, crtp.NewPacket(crtp.PortParam, chanTOC, cmdTOCItemV2, lo, hi),
			func(p crtp.Packet) bool {
				return p.Channel == chanTOC && len(p.Data) >= 3 &&
					p.Data[0] == cmdTOCItemV2 && p.Data[1] == lo && p.Data[2] == hi
			})
		if err != nil {
			return fmt.Errorf("toc item %d: %w", id, err)
		}
		e, err := parseTOCItem(reply.Data[1:])
		if err != nil {
			return err
		}
		elements = append(elements, e)
	}
	c.toc = NewTOC(crc, elements)

	if c.opts.Cache != nil {
		if err := c.opts.Cache.Store(crc, elements); err != nil {
			logrus.Warnf("toc cache: %s", err)
		}
	}
	return nil
}

// request sends p and waits for the first reply accepted by match.
// Unrelated downlink traffic is dropped.
func (c *Client) request(ctx context.Context, p crtp.Packet, match func(crtp.Packet) bool) (crtp.Packet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	if err := c.link.Send(ctx, p); err != nil {
		return crtp.Packet{}, err
	}
	for {
		reply, err := c.link.Receive(ctx)
		if err != nil {
			return crtp.Packet{}, err
		}
		if reply.Port == crtp.PortParam && match(reply) {
			return reply, nil
		}
		logrus.Tracef("dropping %s while waiting for param reply", reply)
	}
}

func (c *Client) lookup(name string) (Element, error) {
	e, ok := c.toc.Lookup(name)
	if !ok {
		return e, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return e, nil
}

func idMatch(ch crtp.Channel, id uint16) func(crtp.Packet) bool {
	return func(p crtp.Packet) bool {
		return p.Channel == ch && len(p.Data) >= 2 &&
			binary.LittleEndian.Uint16(p.Data) == id
	}
}

// SetValue writes name and waits for the firmware to echo the write
func (c *Client) SetValue(ctx context.Context, name string, value float64) error {
	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	if e.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	v, err := e.Type.Encode(value)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	data := binary.LittleEndian.AppendUint16(nil, e.ID)
	data = append(data, v...)

	reply, err := c.request(ctx, crtp.NewPacket(crtp.PortParam, chanWrite, data...), idMatch(chanWrite, e.ID))
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	if !bytes.Equal(reply.Data[2:], v) {
		logrus.WithField("param", name).Warnf("write echo differs from value sent")
	}
	logrus.WithField("param", name).Debugf("set to %v", value)
	return nil
}

// RequestUpdate reads name from the firmware into the local value cache
func (c *Client) RequestUpdate(ctx context.Context, name string) error {
	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	reply, err := c.request(ctx, crtp.NewPacket(crtp.PortParam, chanRead, byte(e.ID), byte(e.ID>>8)),
		idMatch(chanRead, e.ID))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(reply.Data) < 3 {
		return fmt.Errorf("read %s: short reply", name)
	}
	if status := reply.Data[2]; status != 0 {
		return fmt.Errorf("read %s: firmware status %d", name, status)
	}
	v, err := e.Type.Decode(reply.Data[3:])
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	c.mu.Lock()
	c.values[name] = v
	c.mu.Unlock()
	logrus.WithField("param", name).Debugf("read %v", v)
	return nil
}

// Value returns the last value received for name
func (c *Client) Value(name string) (float64, error) {
	if _, err := c.lookup(name); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotUpdated, name)
	}
	return v, nil
}
