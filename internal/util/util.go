package util

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// StripSpaces removes every space from a user supplied address.
func StripSpaces(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
}

// ClientIP returns the requester's network identity, or "" if it cannot be determined.
// With trustXFF the first X-Forwarded-For hop wins over the socket address.
func ClientIP(r *http.Request, trustXFF bool) string {
	if trustXFF {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// FormatWait renders a duration as HH:MM:SS, hours wrapping at 24.
func FormatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", (secs/3600)%24, (secs/60)%60, secs%60)
}
