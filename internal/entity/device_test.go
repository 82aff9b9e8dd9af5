package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      DeviceClass
	}{
		{
			name:      "empty user agent",
			userAgent: "",
			want:      DeviceDesktop,
		},
		{
			name:      "mobile safari",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile Safari",
			want:      DeviceMobile,
		},
		{
			name:      "uppercase marker",
			userAgent: "SOMETHING MOBILE SOMETHING",
			want:      DeviceMobile,
		},
		{
			name:      "tablet",
			userAgent: "Mozilla/5.0 (Linux; Android 13; Tablet) AppleWebKit",
			want:      DeviceTablet,
		},
		{
			name:      "mobile takes precedence over tablet",
			userAgent: "Tablet Mobile hybrid agent",
			want:      DeviceMobile,
		},
		{
			name:      "desktop fallback",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			want:      DeviceDesktop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDevice(tt.userAgent)
			assert.Equal(t, tt.want, got)

			// Classification is a pure function of the input.
			assert.Equal(t, got, ClassifyDevice(tt.userAgent))
		})
	}
}

func TestLink_DestinationFor(t *testing.T) {
	link := &Link{
		LinkID:     "abc123",
		DefaultURL: "https://a.example",
		VariantURLs: VariantURLs{
			DeviceMobile: "https://m.example",
		},
	}

	assert.Equal(t, "https://m.example", link.DestinationFor(DeviceMobile))
	assert.Equal(t, "https://a.example", link.DestinationFor(DeviceTablet))
	assert.Equal(t, "https://a.example", link.DestinationFor(DeviceDesktop))
}
