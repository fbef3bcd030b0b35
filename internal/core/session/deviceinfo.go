package session

import (
	"strings"

	"github.com/ledgerkeep/ledgerkeep/internal/core"
)

// ClassifyDevice maps a raw user-agent string to a coarse device class.
//
// Mobile and tablet markers are checked before OS markers so a mobile device
// presenting a desktop-like UA is still classified as mobile.
func ClassifyDevice(userAgent string) core.DeviceClass {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return core.DeviceMobile
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return core.DeviceTablet
	case strings.Contains(ua, "windows"):
		return core.DeviceDesktopWin
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		return core.DeviceDesktopMac
	case strings.Contains(ua, "linux"):
		return core.DeviceDesktopLinux
	default:
		return core.DeviceDesktop
	}
}
