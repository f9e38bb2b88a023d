package crtp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestPacketHeader(t *testing.T) {
	p := NewPacket(PortParam, 2, 0x01, 0x00)
	b, err := p.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 0x2e {
		t.Fatalf("header = 0x%02x, want 0x2e", b[0])
	}

	parsed, err := ParsePacket(b)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Port != PortParam || parsed.Channel != 2 || !bytes.Equal(parsed.Data, []byte{0x01, 0x00}) {
		t.Fatalf("unexpected packet %s %v", parsed, parsed.Data)
	}
}

func TestPacketLimits(t *testing.T) {
	if _, err := NewPacket(PortParam, 0, make([]byte, MaxPayload+1)...).Bytes(); !errors.Is(err, ErrPayloadTooBig) {
		t.Fatalf("expected ErrPayloadTooBig, got %v", err)
	}
	if _, err := ParsePacket(nil); !errors.Is(err, ErrEmptyPacket) {
		t.Fatalf("expected ErrEmptyPacket, got %v", err)
	}
	null, err := ParsePacket([]byte{nullHeader})
	if err != nil {
		t.Fatal(err)
	}
	if !null.IsNull() {
		t.Fatal("0xff should decode as a null packet")
	}
}

func TestParseRadioURI(t *testing.T) {
	uri, err := ParseURI("radio://0/80/2M")
	if err != nil {
		t.Fatal(err)
	}
	if uri.Scheme != SchemeRadio || uri.Device != 0 || uri.Channel != 80 || uri.DataRate != DataRate2M {
		t.Fatalf("unexpected uri %+v", uri)
	}
	if uri.Address != DefaultAddress {
		t.Fatalf("address = %X, want default", uri.Address)
	}

	uri, err = ParseURI("radio://1/10/250K/E7E7E7E701")
	if err != nil {
		t.Fatal(err)
	}
	if uri.Device != 1 || uri.DataRate != DataRate250K || uri.Address[4] != 0x01 {
		t.Fatalf("unexpected uri %+v", uri)
	}
}

func TestParseURIErrors(t *testing.T) {
	for _, raw := range []string{
		"radio://x/80/2M",
		"radio://0/80",
		"radio://0/200/2M",
		"radio://0/80/3M",
		"radio://0/80/2M/E7E7",
		"udp://localhost",
		"usb://0",
	} {
		if _, err := ParseURI(raw); err == nil {
			t.Errorf("%s: expected error", raw)
		}
	}
	if _, err := ParseURI("usb://0"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestUDPLink(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	go func() {
		buf := make([]byte, 64)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			pc.WriteTo(buf[:n], addr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	link, err := Open(ctx, "udp://"+pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()

	if err = link.Send(ctx, NewPacket(PortParam, 1, 0x07, 0x00)); err != nil {
		t.Fatal(err)
	}
	p, err := link.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.Port != PortParam || p.Channel != 1 || !bytes.Equal(p.Data, []byte{0x07, 0x00}) {
		t.Fatalf("unexpected echo %s", p)
	}
}

func TestUDPLinkReceiveTimeout(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	link, err := Open(context.Background(), "udp://"+pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer link.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err = link.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
