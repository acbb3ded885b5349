package session

import "log"

// Notification variants understood by the console's toast surface.
const (
	VariantSuccess     = "success"
	VariantDestructive = "destructive"
)

// Notification is a user-facing message. Fire-and-forget: no delivery
// status is consumed.
type Notification struct {
	Title       string
	Description string
	Variant     string
}

// Notifier shows notifications to the user. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a standard logger. It is the default
// when no Notifier is injected.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("notify [%s] %s: %s", n.Variant, n.Title, n.Description)
}
