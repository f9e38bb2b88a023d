package param

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/crtp"
)

// firmware answers param requests the way a Crazyflie does
type firmware struct {
	mu        sync.Mutex
	elements  []Element
	values    map[uint16][]byte
	crc       uint32
	tocItems  int
	writes    []uint16
	reads     []uint16
	silent    bool
	downlink  chan crtp.Packet
	noiseSent bool
}

func newFirmware() *firmware {
	fw := &firmware{
		crc: 0xdeadbeef,
		elements: []Element{
			{ID: 0, Group: "rlt", Name: "ps_enable", Type: TypeUint8},
			{ID: 1, Group: "rlt", Name: "ps_thresh", Type: TypeFloat},
			{ID: 2, Group: "pm", Name: "vbat", Type: TypeFloat, ReadOnly: true},
		},
		values:   map[uint16][]byte{},
		downlink: make(chan crtp.Packet, 16),
	}
	fw.values[0], _ = TypeUint8.Encode(0)
	fw.values[1], _ = TypeFloat.Encode(0.5)
	fw.values[2], _ = TypeFloat.Encode(3.9)
	return fw
}

func (fw *firmware) Send(ctx context.Context, p crtp.Packet) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.silent {
		return nil
	}
	if !fw.noiseSent {
		fw.noiseSent = true
		fw.downlink <- crtp.NewPacket(crtp.PortConsole, 0, 'h', 'i')
	}
	switch p.Channel {
	case chanTOC:
		switch p.Data[0] {
		case cmdTOCInfoV2:
			data := []byte{cmdTOCInfoV2}
			data = binary.LittleEndian.AppendUint16(data, uint16(len(fw.elements)))
			data = binary.LittleEndian.AppendUint32(data, fw.crc)
			fw.downlink <- crtp.NewPacket(crtp.PortParam, chanTOC, data...)
		case cmdTOCItemV2:
			fw.tocItems++
			id := binary.LittleEndian.Uint16(p.Data[1:])
			e := fw.elements[id]
			flags := byte(e.Type)
			if e.ReadOnly {
				flags |= flagReadOnly
			}
			data := []byte{cmdTOCItemV2, p.Data[1], p.Data[2], flags}
			data = append(data, e.Group...)
			data = append(data, 0)
			data = append(data, e.Name...)
			data = append(data, 0)
			fw.downlink <- crtp.NewPacket(crtp.PortParam, chanTOC, data...)
		}
	case chanRead:
		id := binary.LittleEndian.Uint16(p.Data)
		fw.reads = append(fw.reads, id)
		data := append([]byte{p.Data[0], p.Data[1], 0}, fw.values[id]...)
		fw.downlink <- crtp.NewPacket(crtp.PortParam, chanRead, data...)
	case chanWrite:
		id := binary.LittleEndian.Uint16(p.Data)
		fw.writes = append(fw.writes, id)
		fw.values[id] = append([]byte(nil), p.Data[2:]...)
		fw.downlink <- crtp.NewPacket(crtp.PortParam, chanWrite, p.Data...)
	}
	return nil
}

func (fw *firmware) Receive(ctx context.Context) (crtp.Packet, error) {
	select {
	case p := <-fw.downlink:
		return p, nil
	case <-ctx.Done():
		return crtp.Packet{}, ctx.Err()
	}
}

func (fw *firmware) Close() error {
	return nil
}

func TestSetAndRead(t *testing.T) {
	fw := newFirmware()
	c, err := Connect(context.Background(), fw, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c.TOC().Len() != 3 {
		t.Fatalf("toc size = %d, want 3", c.TOC().Len())
	}

	ctx := context.Background()
	if err = c.SetValue(ctx, "rlt.ps_enable", 1); err != nil {
		t.Fatal(err)
	}
	if err = c.SetValue(ctx, "rlt.ps_thresh", 0.6); err != nil {
		t.Fatal(err)
	}
	if _, err = c.Value("rlt.ps_enable"); !errors.Is(err, ErrNotUpdated) {
		t.Fatalf("expected ErrNotUpdated before a read, got %v", err)
	}
	if err = c.RequestUpdate(ctx, "rlt.ps_enable"); err != nil {
		t.Fatal(err)
	}
	if err = c.RequestUpdate(ctx, "rlt.ps_thresh"); err != nil {
		t.Fatal(err)
	}

	enable, err := c.Value("rlt.ps_enable")
	if err != nil {
		t.Fatal(err)
	}
	if enable != 1 {
		t.Fatalf("ps_enable = %v, want 1", enable)
	}
	thresh, err := c.Value("rlt.ps_thresh")
	if err != nil {
		t.Fatal(err)
	}
	if float32(thresh) != float32(0.6) {
		t.Fatalf("ps_thresh = %v, want 0.6", thresh)
	}
	if len(fw.writes) != 2 || fw.writes[0] != 0 || fw.writes[1] != 1 {
		t.Fatalf("unexpected write order %v", fw.writes)
	}
}

func TestUnknownAndReadOnly(t *testing.T) {
	c, err := Connect(context.Background(), newFirmware(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err = c.SetValue(context.Background(), "rlt.nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Fatalf("expected ErrUnknownParam, got %v", err)
	}
	if err = c.SetValue(context.Background(), "pm.vbat", 1); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func TestConnectTimeout(t *testing.T) {
	fw := newFirmware()
	fw.silent = true
	_, err := Connect(context.Background(), fw, Options{Timeout: 20 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTOCCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache := FileCache{Dir: dir}

	fw := newFirmware()
	if _, err := Connect(context.Background(), fw, Options{Cache: cache}); err != nil {
		t.Fatal(err)
	}
	if fw.tocItems != 3 {
		t.Fatalf("downloaded %d toc items, want 3", fw.tocItems)
	}
	if _, err := os.Stat(filepath.Join(dir, "DEADBEEF.yml")); err != nil {
		t.Fatal(err)
	}

	fw2 := newFirmware()
	c, err := Connect(context.Background(), fw2, Options{Cache: cache})
	if err != nil {
		t.Fatal(err)
	}
	if fw2.tocItems != 0 {
		t.Fatalf("downloaded %d toc items with a warm cache", fw2.tocItems)
	}
	if e, ok := c.TOC().Lookup("rlt.ps_thresh"); !ok || e.Type != TypeFloat {
		t.Fatalf("cached toc lost rlt.ps_thresh: %+v", e)
	}
}

func TestTypeCodec(t *testing.T) {
	for _, tc := range []struct {
		typ Type
		in  float64
		out float64
	}{
		{TypeUint8, 1, 1},
		{TypeInt8, -3, -3},
		{TypeUint16, 65535, 65535},
		{TypeInt32, -70000, -70000},
		{TypeFloat, 0.25, 0.25},
		{TypeDouble, 0.1, 0.1},
		{TypeInt16, 2.9, 2},
	} {
		b, err := tc.typ.Encode(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		v, err := tc.typ.Decode(b)
		if err != nil {
			t.Fatal(err)
		}
		if v != tc.out {
			t.Errorf("%s: %v -> %v, want %v", tc.typ, tc.in, v, tc.out)
		}
	}
	if _, err := TypeFP16.Encode(1); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestTOCItemTypeByte(t *testing.T) {
	for _, tc := range []struct {
		item     []byte
		name     string
		typ      Type
		readOnly bool
		raw      []byte
		want     float64
	}{
		{[]byte{0x05, 0x00, 0x09, 'm', 'o', 't', 'o', 'r', 0, 'm', '1', 0},
			"motor.m1", TypeUint16, false, []byte{0x40, 0x9c}, 40000},
		{[]byte{0x06, 0x00, 0x08, 'r', 'l', 't', 0, 'p', 's', '_', 'e', 'n', 'a', 'b', 'l', 'e', 0},
			"rlt.ps_enable", TypeUint8, false, []byte{0xc8}, 200},
		{[]byte{0x07, 0x00, 0x40, 'r', 'a', 'd', 'i', 'o', 0, 'r', 's', 's', 'i', 0},
			"radio.rssi", TypeInt8, true, []byte{0xc8}, -56},
		{[]byte{0x08, 0x00, 0x0a, 's', 'y', 's', 0, 'i', 'd', 0},
			"sys.id", TypeUint32, false, []byte{0xff, 0xff, 0xff, 0xff}, 4294967295},
		{[]byte{0x09, 0x00, 0x02, 'p', 'i', 'd', 0, 'i', 0},
			"pid.i", TypeInt32, false, []byte{0xff, 0xff, 0xff, 0xff}, -1},
		{[]byte{0x0a, 0x00, 0x06, 'r', 'l', 't', 0, 'p', 's', '_', 't', 'h', 'r', 'e', 's', 'h', 0},
			"rlt.ps_thresh", TypeFloat, false, []byte{0x00, 0x00, 0x80, 0x3e}, 0.25},
	} {
		e, err := parseTOCItem(tc.item)
		if err != nil {
			t.Fatal(err)
		}
		if e.FullName() != tc.name || e.Type != tc.typ || e.ReadOnly != tc.readOnly {
			t.Fatalf("%s: parsed as %s %s readonly=%v", tc.name, e.FullName(), e.Type, e.ReadOnly)
		}
		v, err := e.Type.Decode(tc.raw)
		if err != nil {
			t.Fatal(err)
		}
		if v != tc.want {
			t.Errorf("%s: decoded %v, want %v", tc.name, v, tc.want)
		}
	}
}
