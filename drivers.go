//go:build !nousb

package main

import (
	// radio:// links over a Crazyradio PA; build with -tags nousb to drop libusb
	_ "github.com/yitzhak-shaked/RL-Flight-Crazyflie/crtp/usbradio"
)
