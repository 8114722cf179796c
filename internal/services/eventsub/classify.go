package eventsub

import "net/http"

// MessageTypeRevocation is the message type header value Twitch sends when a subscription is revoked.
const MessageTypeRevocation = "revocation"

// Kind is the message kind derived from a verified request.
type Kind int

const (
	KindNotification Kind = iota
	KindChallenge
	KindRevocation
)

func (k Kind) String() string {
	switch k {
	case KindChallenge:
		return "challenge"
	case KindRevocation:
		return "revocation"
	default:
		return "notification"
	}
}

// Classify decides the message kind. A challenge wins over the message type
// header; anything that is neither a challenge nor a revocation is a notification.
func Classify(body Body, headers http.Header) Kind {
	if _, ok := body.(Challenge); ok {
		return KindChallenge
	}
	if headers.Get(HeaderMessageType) == MessageTypeRevocation {
		return KindRevocation
	}
	return KindNotification
}
