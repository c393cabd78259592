package notify

import (
	"fmt"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Sender is the transport behind Notifier. *pushover.Pushover satisfies it.
type Sender interface {
	SendMessage(message *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

type Notifier struct {
	app       Sender
	recipient *pushover.Recipient
	logger    *logrus.Logger
}

func NewNotifier(token, userKey string, logger *logrus.Logger) *Notifier {
	return NewNotifierWithSender(pushover.New(token), userKey, logger)
}

func NewNotifierWithSender(app Sender, userKey string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		app:       app,
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := n.app.SendMessage(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"title":      title,
		"status":     resp.Status,
		"request_id": resp.ID,
	}).Debug("notification sent")

	return nil
}

func (n *Notifier) SendStationDegraded(station, reason string) error {
	title := "Tram Board Alert"
	body := fmt.Sprintf("Departures for %s are unavailable.\nReason: %s", station, reason)
	return n.SendWithPriority(title, body, PriorityHigh)
}

func (n *Notifier) SendStationRecovered(station string, departures int) error {
	title := "Tram Board Status"
	body := fmt.Sprintf("Departures for %s are back.\nShowing %d departures.", station, departures)
	return n.Send(title, body)
}
