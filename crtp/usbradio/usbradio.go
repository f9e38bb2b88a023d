// Package usbradio registers the Crazyradio PA USB driver for radio://
// links. It needs cgo and libusb; import it for side effects only.
package usbradio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
	"github.com/yitzhak-shaked/RL-Flight-Crazyflie/crtp"
)

// Crazyradio PA USB identity
const (
	vendorID  gousb.ID = 0x1915
	productID gousb.ID = 0x7777
)

// Crazyradio vendor requests
const (
	reqSetRadioChannel = 0x01
	reqSetRadioAddress = 0x02
	reqSetDataRate     = 0x03
	reqSetRadioPower   = 0x04
	reqSetRadioARC     = 0x06
	reqAckEnable       = 0x10
)

const (
	power0dBm = 3
	arc       = 3
)

var ErrRadioNotFound = errors.New("crazyradio dongle not found")

func init() {
	crtp.Register(crtp.SchemeRadio, Open)
}

// device owns the USB handles behind one radio link
type device struct {
	usb  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()
}

func (d *device) Close() error {
	if d.done != nil {
		d.done()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	return d.usb.Close()
}

// Open claims Crazyradio number uri.Device and tunes it to the URI
func Open(ctx context.Context, uri crtp.URI) (crtp.Link, error) {
	usb := gousb.NewContext()
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devs) == 0 {
		usb.Close()
		return nil, err
	}
	if uri.Device >= len(devs) {
		for _, d := range devs {
			d.Close()
		}
		usb.Close()
		return nil, fmt.Errorf("%w: device index %d, %d present", ErrRadioNotFound, uri.Device, len(devs))
	}
	for i, d := range devs {
		if i != uri.Device {
			d.Close()
		}
	}

	d := &device{usb: usb, dev: devs[uri.Device]}
	out, in, err := d.setup(uri)
	if err != nil {
		d.Close()
		return nil, err
	}
	logrus.Debugf("crazyradio %d on channel %d at %s, address %X",
		uri.Device, uri.Channel, uri.DataRate, uri.Address)
	return crtp.NewRadioLink(out, in, d), nil
}

func (d *device) setup(uri crtp.URI) (out *gousb.OutEndpoint, in *gousb.InEndpoint, err error) {
	d.intf, d.done, err = d.dev.DefaultInterface()
	if err != nil {
		return
	}
	if out, err = d.intf.OutEndpoint(1); err != nil {
		return
	}
	if in, err = d.intf.InEndpoint(1); err != nil {
		return
	}

	steps := []struct {
		req  uint8
		val  uint16
		data []byte
	}{
		{reqSetRadioChannel, uint16(uri.Channel), nil},
		{reqSetRadioAddress, 0, uri.Address[:]},
		{reqSetDataRate, uint16(uri.DataRate), nil},
		{reqSetRadioPower, power0dBm, nil},
		{reqSetRadioARC, arc, nil},
		{reqAckEnable, 1, nil},
	}
	for _, s := range steps {
		if _, err = d.dev.Control(gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice,
			s.req, s.val, 0, s.data); err != nil {
			err = fmt.Errorf("crazyradio setup request 0x%02x: %w", s.req, err)
			return
		}
	}
	return
}
