package crtp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DataRate of the nRF radio link
type DataRate uint8

const (
	DataRate250K DataRate = iota
	DataRate1M
	DataRate2M
)

func (r DataRate) String() string {
	switch r {
	case DataRate250K:
		return "250K"
	case DataRate1M:
		return "1M"
	case DataRate2M:
		return "2M"
	default:
		return "unknown"
	}
}

const (
	SchemeRadio = "radio"
	SchemeUDP   = "udp"
)

// DefaultAddress is the factory radio address of a Crazyflie
var DefaultAddress = [5]byte{0xe7, 0xe7, 0xe7, 0xe7, 0xe7}

var ErrUnsupportedScheme = errors.New("unsupported link scheme")

// URI identifies a link endpoint.
//
//	radio://<device>/<channel>/<datarate>[/<address>]
//	udp://<host>:<port>
type URI struct {
	Scheme   string
	Device   int
	Channel  uint8
	DataRate DataRate
	Address  [5]byte
	HostPort string
	raw      string
}

func (u URI) String() string {
	return u.raw
}

func ParseURI(raw string) (uri URI, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return
	}
	uri.raw = raw
	uri.Scheme = u.Scheme
	switch u.Scheme {
	case SchemeRadio:
		err = parseRadioURI(u, &uri)
	case SchemeUDP:
		if _, _, err = net.SplitHostPort(u.Host); err != nil {
			return
		}
		uri.HostPort = u.Host
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return
}

func parseRadioURI(u *url.URL, uri *URI) (err error) {
	uri.Device, err = strconv.Atoi(u.Host)
	if err != nil {
		return fmt.Errorf("invalid radio device %q", u.Host)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("invalid radio uri %s, want radio://<dev>/<channel>/<rate>[/<address>]", u)
	}

	ch, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || ch > 125 {
		return fmt.Errorf("invalid radio channel %q", parts[0])
	}
	uri.Channel = uint8(ch)

	switch strings.ToUpper(parts[1]) {
	case "250K":
		uri.DataRate = DataRate250K
	case "1M":
		uri.DataRate = DataRate1M
	case "2M":
		uri.DataRate = DataRate2M
	default:
		return fmt.Errorf("invalid radio data rate %q", parts[1])
	}

	uri.Address = DefaultAddress
	if len(parts) == 3 {
		addr, _err := hex.DecodeString(parts[2])
		if _err != nil || len(addr) != len(uri.Address) {
			return fmt.Errorf("invalid radio address %q", parts[2])
		}
		copy(uri.Address[:], addr)
	}
	return nil
}
