package entity

import "time"

// ScanEvent records one successful resolution of a link. Events are handed
// to the scan tracker and never shared between goroutines after that.
type ScanEvent struct {
	LinkID    string      `json:"link_id"`
	ScannedAt time.Time   `json:"scanned_at"`
	Device    DeviceClass `json:"device_class"`
	SourceIP  string      `json:"source_ip,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
}
