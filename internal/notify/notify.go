// Package notify carries transient user-facing messages out of the
// data layer. The gateway reports every command outcome here; what a
// shell does with them (toast, status bar, print) is its own business.
package notify

import "log"

// Notifier receives one transient message per command outcome.
type Notifier interface {
	Notify(message string)
}

// LogNotifier writes notifications to the process log. Default for
// headless use.
type LogNotifier struct{}

func (LogNotifier) Notify(message string) {
	log.Printf("[Notify] %s", message)
}

// ChannelNotifier forwards notifications to a channel for UIs and
// tests. Messages are dropped when the channel is full; a notification
// is transient by definition.
type ChannelNotifier struct {
	C chan string
}

// NewChannelNotifier creates a ChannelNotifier with the given buffer.
func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{C: make(chan string, buffer)}
}

func (n *ChannelNotifier) Notify(message string) {
	select {
	case n.C <- message:
	default:
	}
}
