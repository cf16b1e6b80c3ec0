package classifier

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device buckets used by the dashboards.
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
	DeviceOther   = "Other"
)

// DeviceTypes lists the device buckets in display order.
var DeviceTypes = []string{DeviceMobile, DeviceTablet, DeviceDesktop, DeviceOther}

// Agent holds the families parsed out of a user agent.
type Agent struct {
	DeviceType string
	Browser    string
	OS         string
}

var tabletTokens = []string{"ipad", "tablet", "kindle"}

// ParseAgent 解析设备类型、浏览器与操作系统。
func ParseAgent(userAgent string) Agent {
	raw := strings.TrimSpace(userAgent)
	if raw == "" {
		return Agent{DeviceType: DeviceOther, Browser: DeviceOther, OS: DeviceOther}
	}

	ua := useragent.New(raw)
	lower := strings.ToLower(raw)

	browser, _ := ua.Browser()
	return Agent{
		DeviceType: DeviceType(raw),
		Browser:    orOther(browser),
		OS:         osFamily(ua.OSInfo().Name, lower),
	}
}

// DeviceType buckets a user agent into Mobile, Tablet, Desktop or Other.
func DeviceType(userAgent string) string {
	raw := strings.TrimSpace(userAgent)
	if raw == "" {
		return DeviceOther
	}
	lower := strings.ToLower(raw)
	for _, token := range tabletTokens {
		if strings.Contains(lower, token) {
			return DeviceTablet
		}
	}

	ua := useragent.New(raw)
	switch {
	case ua.Mobile() || strings.Contains(lower, "mobile"):
		return DeviceMobile
	case ua.Bot():
		return DeviceOther
	default:
		return DeviceDesktop
	}
}

func osFamily(name, lower string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "android") || strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(n, "iphone") || strings.Contains(n, "ipad") || strings.Contains(lower, "iphone os"):
		return "iOS"
	case strings.Contains(n, "windows"):
		return "Windows"
	case strings.Contains(n, "mac os") || strings.Contains(n, "macos"):
		return "macOS"
	case strings.Contains(n, "cros") || strings.Contains(n, "chrome os"):
		return "Chrome OS"
	case strings.Contains(n, "linux") || strings.Contains(n, "ubuntu"):
		return "Linux"
	default:
		return DeviceOther
	}
}

func orOther(s string) string {
	if strings.TrimSpace(s) == "" {
		return DeviceOther
	}
	return s
}
