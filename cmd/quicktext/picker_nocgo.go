//go:build !cgo

package main

import "pkt.systems/quicktext/internal/host"

// Without cgo there is no native dialog; every pick is a cancel.
func nativePicker() host.Picker {
	return host.StaticPicker{}
}
