// Package entity defines the entities and errors used in the application.
// It includes the Link struct, which represents a QR short link along with
// its destinations and scan statistics, and any relevant error definitions.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrLinkExists is returned when attempting to create a link with an identifier that already exists.
	ErrLinkExists = errors.New("link exists")
	// ErrLinkNotFound is returned when a link with the specified identifier cannot be found.
	ErrLinkNotFound = errors.New("link not found")
)

// Link represents a QR short link.
type Link struct {
	ID          int64       // ID is the unique identifier of the link in the database.
	LinkID      string      // LinkID is the opaque identifier encoded in the QR code.
	DefaultURL  string      // DefaultURL is the destination used when no variant matches.
	VariantURLs VariantURLs // VariantURLs overrides the destination per device class.
	Theme       string      // Theme is the dark color of the rendered QR code.
	ExpiresAt   *time.Time  // ExpiresAt is the optional instant after which the link stops redirecting.
	LinkStats               // LinkStats contains scan statistics about the link.
	CreatedAt   time.Time   // CreatedAt is the timestamp when the link was created.
	UpdatedAt   time.Time   // UpdatedAt is the timestamp when the link was last updated.
}

// VariantURLs maps a device class to an override destination URL.
type VariantURLs map[DeviceClass]string

// LinkStats contains scan statistics related to a link. ScanCount and
// LastScanAt are mutated only by the scan tracker, never on the resolve path.
type LinkStats struct {
	ScanCount  int64      // ScanCount is the number of times the link has been scanned.
	LastScanAt *time.Time // LastScanAt is the timestamp of the most recent scan, if any.
}

// Expired reports whether the link has an expiry set and it has passed.
// Expiry is a read-time policy check; the record itself is left untouched.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// DestinationFor selects the destination URL for the given device class,
// falling back to DefaultURL when no variant is configured.
func (l *Link) DestinationFor(device DeviceClass) string {
	if url, ok := l.VariantURLs[device]; ok && url != "" {
		return url
	}
	return l.DefaultURL
}
