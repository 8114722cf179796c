package notifications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yourusername/eventsub-receiver/internal/services/eventsub"
)

// summaryFields are the event keys worth surfacing, in display order.
var summaryFields = []string{
	"broadcaster_user_name",
	"user_name",
	"title",
	"category_name",
	"type",
	"started_at",
	"followed_at",
}

// RenderSummary renders a short human-readable line for event.
func RenderSummary(event eventsub.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", event.EventType)
	if event.UserID != "" {
		fmt.Fprintf(&b, " for user %s", event.UserID)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		return b.String()
	}
	for _, key := range summaryFields {
		v, ok := fields[key].(string)
		if !ok || v == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", key, v)
	}
	return b.String()
}
