package auditlog

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/animus-labs/actiontracker/internal/platform/httpserver"
)

// FromRequest builds an event for a mutation served by r.
func FromRequest(r *http.Request, action, resourceType, resourceID string, payload any) Event {
	var ip net.IP
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = net.ParseIP(host)
	}
	return Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        AnonymousActor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    strings.TrimSpace(r.Header.Get(httpserver.RequestIDHeader)),
		IP:           ip,
		UserAgent:    r.UserAgent(),
		Payload:      payload,
	}
}
