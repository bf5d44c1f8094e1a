// Package notify sends desktop notifications for counter milestones.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/verte-zerg/mantra/internal/model"
)

// SendFunc delivers one notification.
type SendFunc func(title, body string) error

// Desktop notifies through the platform notification service.
type Desktop struct {
	send    SendFunc
	enabled bool
}

// NewDesktop returns a notifier backed by beeep. A disabled notifier sends nothing.
func NewDesktop(enabled bool) *Desktop {
	return &Desktop{
		send: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
		enabled: enabled,
	}
}

// WithSender replaces the delivery function.
func (d *Desktop) WithSender(send SendFunc) *Desktop {
	d.send = send
	return d
}

// GoalReached announces that m reached its goal.
func (d *Desktop) GoalReached(m model.Mantra) error {
	if d == nil || !d.enabled || d.send == nil {
		return nil
	}
	title, body := GoalMessage(m)
	return d.send(title, body)
}

// GoalMessage builds the congratulation text for m.
func GoalMessage(m model.Mantra) (title, body string) {
	title = fmt.Sprintf("Goal reached: %s", m.Title)
	body = fmt.Sprintf("Congratulations! You completed %d of %d readings.", m.Reads, m.Goal)
	return title, body
}
