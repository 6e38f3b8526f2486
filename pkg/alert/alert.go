// Package alert delivers rendered distillation results to configured
// destinations: a Feishu bot webhook, a generic HMAC-signed webhook, and
// SMTP email.
package alert

import (
	"context"
	"errors"
	"fmt"
)

// Notification is the rendered payload sent to alert destinations.
type Notification struct {
	Title  string `json:"title"`
	Digest string `json:"digest,omitempty"`
	Text   string `json:"text"`
	HTML   string `json:"-"`
}

// Notifier delivers notifications to one destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a manager over the given notifiers.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers reports whether at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends the notification to every notifier and joins any errors.
// One failing destination does not stop delivery to the others.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
