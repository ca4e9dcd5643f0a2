// Package payload decodes inbound push payloads into a strictly-optional
// structure and applies display defaults at the boundary.
package payload

import (
	"encoding/json"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/mitchellh/mapstructure"
)

// DefaultTitle is used when a payload carries no title.
const DefaultTitle = "New Notification"

// Notification is the display part of a push payload.
type Notification struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// Payload is a server-originated push as received on either channel.
type Payload struct {
	Notification *Notification    `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// Title returns the notification title, or DefaultTitle when it is absent or
// empty. Whitespace titles are kept as sent.
func (p Payload) Title() string {
	if p.Notification != nil && p.Notification.Title != nil && *p.Notification.Title != "" {
		return *p.Notification.Title
	}
	return DefaultTitle
}

// Body returns the notification body or an empty string.
func (p Payload) Body() string {
	if p.Notification != nil && p.Notification.Body != nil {
		return *p.Notification.Body
	}
	return ""
}

// Get returns the data value for key; absent keys yield "".
func (p Payload) Get(key string) string {
	if p.Data == nil {
		return ""
	}
	return p.Data[key]
}

// DataCopy returns a copy of the data map, never nil.
func (p Payload) DataCopy() map[string]string {
	out := make(map[string]string, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}

type rawPayload struct {
	Notification *Notification  `json:"notification"`
	Data         map[string]any `json:"data"`
}

// Decode parses raw JSON. Non-string data values are coerced to strings so
// a sloppy sender never drops the whole payload.
func Decode(raw []byte) (Payload, error) {
	var decoded rawPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}

	p := Payload{Notification: decoded.Notification}
	if len(decoded.Data) > 0 {
		p.Data = make(map[string]string, len(decoded.Data))
		for key, value := range decoded.Data {
			p.Data[key] = stringify(value)
		}
	}
	return p, nil
}

// Encode renders p as JSON.
func Encode(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// FromMessage converts a Firebase Cloud Messaging message.
func FromMessage(msg *messaging.Message) Payload {
	if msg == nil {
		return Payload{}
	}
	p := Payload{}
	if msg.Notification != nil {
		title := msg.Notification.Title
		body := msg.Notification.Body
		p.Notification = &Notification{}
		if title != "" {
			p.Notification.Title = &title
		}
		if body != "" {
			p.Notification.Body = &body
		}
	}
	if len(msg.Data) > 0 {
		p.Data = make(map[string]string, len(msg.Data))
		for k, v := range msg.Data {
			p.Data[k] = v
		}
	}
	return p
}

// ToMessage builds a Firebase message addressed to token.
func ToMessage(p Payload, token string) *messaging.Message {
	msg := &messaging.Message{Token: token, Data: p.DataCopy()}
	if p.Notification != nil {
		msg.Notification = &messaging.Notification{Title: p.Title(), Body: p.Body()}
	}
	return msg
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	var out string
	if err := mapstructure.WeakDecode(value, &out); err == nil {
		return out
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
