package enrichment

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device kinds attached to activity records. Anything that isn't clearly a
// mobile client or a bot defaults to desktop.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceBot     = "bot"
)

// ClientDevice is the parsed shape of a User-Agent header.
type ClientDevice struct {
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	DeviceKind string `json:"device"`
}

// ParseUserAgent parses a raw User-Agent string. Unparsable or empty input
// yields empty browser/OS fields and the desktop device kind rather than an
// error; enrichment must never fail the record.
func ParseUserAgent(raw string) ClientDevice {
	device := ClientDevice{DeviceKind: DeviceDesktop}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return device
	}

	ua := useragent.New(raw)

	if name, version := ua.Browser(); name != "" {
		device.Browser = name
		if version != "" {
			device.Browser += " " + version
		}
	}

	if osInfo := ua.OSInfo(); osInfo.Name != "" {
		device.OS = osInfo.Name
		if osInfo.Version != "" {
			device.OS += " " + osInfo.Version
		}
	}

	switch {
	case ua.Bot():
		device.DeviceKind = DeviceBot
	case ua.Mobile():
		device.DeviceKind = DeviceMobile
	}

	return device
}
