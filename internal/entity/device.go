package entity

import "strings"

// DeviceClass is a coarse device category derived from the client user agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
)

// ClassifyDevice derives the device class from a raw user agent string.
// Matching is case-insensitive and ordered: a mobile marker takes precedence
// over a tablet marker, and anything else falls back to desktop. The result
// depends only on the input, so repeated calls always agree.
func ClassifyDevice(userAgent string) DeviceClass {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "mobile") {
		return DeviceMobile
	}
	if strings.Contains(ua, "tablet") {
		return DeviceTablet
	}

	return DeviceDesktop
}
