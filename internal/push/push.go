// Package push delivers Web Push notifications to browser subscriptions.
//
// Requests are authenticated with VAPID (RFC 8292) and payloads are encrypted
// with the aes128gcm content coding (RFC 8291), so any standards-compliant push
// service (FCM, Mozilla autopush, Apple) accepts them.
package push

import (
	"errors"
	"time"
)

// ErrNotConfigured is returned when no VAPID key pair is configured.
var ErrNotConfigured = errors.New("push: VAPID keys not configured")

// ErrGone is wrapped into a Result error when the push service answered 404
// or 410, meaning the subscription no longer exists.
var ErrGone = errors.New("push: subscription expired")

// Keys is the client key material from PushSubscription.getKey(), base64url.
type Keys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// Subscription is a browser PushSubscription as serialised by toJSON().
type Subscription struct {
	Endpoint       string `json:"endpoint" validate:"required,url"`
	ExpirationTime *int64 `json:"expirationTime,omitempty"`
	Keys           Keys   `json:"keys"`
	UserAgent      string `json:"-"`
}

// Notification is what the caller wants shown. Empty fields take defaults.
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
}

const (
	defaultTitle = "Daily Love Letters"
	defaultBody  = "You have a new love letter waiting! 💕"
	defaultIcon  = "/placeholder.svg"
	defaultURL   = "/"
)

// Result is the outcome for one endpoint.
type Result struct {
	Endpoint string `json:"endpoint"`
	Success  bool   `json:"success"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

type payloadAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
}

type payloadData struct {
	DateOfArrival int64 `json:"dateOfArrival"`
	PrimaryKey    int   `json:"primaryKey"`
}

// payload is the JSON the service worker receives in its push event.
type payload struct {
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Icon    string          `json:"icon"`
	Badge   string          `json:"badge"`
	URL     string          `json:"url"`
	Vibrate []int           `json:"vibrate"`
	Data    payloadData     `json:"data"`
	Actions []payloadAction `json:"actions"`
}

func buildPayload(n Notification, now time.Time) payload {
	p := payload{
		Title:   n.Title,
		Body:    n.Body,
		Icon:    n.Icon,
		Badge:   defaultIcon,
		URL:     n.URL,
		Vibrate: []int{100, 50, 100},
		Data:    payloadData{DateOfArrival: now.UnixMilli(), PrimaryKey: 1},
		Actions: []payloadAction{
			{Action: "explore", Title: "Read Now", Icon: defaultIcon},
			{Action: "close", Title: "Close", Icon: defaultIcon},
		},
	}
	if p.Title == "" {
		p.Title = defaultTitle
	}
	if p.Body == "" {
		p.Body = defaultBody
	}
	if p.Icon == "" {
		p.Icon = defaultIcon
	}
	if p.URL == "" {
		p.URL = defaultURL
	}
	return p
}
