//go:build cgo

package main

import (
	"pkt.systems/quicktext/internal/host"
	"pkt.systems/quicktext/internal/host/dialogpicker"
)

func nativePicker() host.Picker {
	return dialogpicker.New()
}
