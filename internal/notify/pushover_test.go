package notify

import (
	"errors"
	"io"
	"testing"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []*pushover.Message
	err      error
}

func (f *fakeSender) SendMessage(msg *pushover.Message, _ *pushover.Recipient) (*pushover.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.messages = append(f.messages, msg)
	return &pushover.Response{Status: 1, ID: "req"}, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSendStationDegraded(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "user", quietLogger())

	require.NoError(t, n.SendStationDegraded("T7 Roswiesen", "No connection"))
	require.Len(t, sender.messages, 1)

	msg := sender.messages[0]
	assert.Equal(t, "Tram Board Alert", msg.Title)
	assert.Equal(t, PriorityHigh, msg.Priority)
	assert.Contains(t, msg.Message, "T7 Roswiesen")
	assert.Contains(t, msg.Message, "No connection")
}

func TestSendStationRecovered(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifierWithSender(sender, "user", quietLogger())

	require.NoError(t, n.SendStationRecovered("T9 Heerenwiesen", 4))
	require.Len(t, sender.messages, 1)
	assert.Equal(t, PriorityNormal, sender.messages[0].Priority)
	assert.Contains(t, sender.messages[0].Message, "4 departures")
}

func TestSend_Error(t *testing.T) {
	n := NewNotifierWithSender(&fakeSender{err: errors.New("boom")}, "user", quietLogger())

	err := n.Send("t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending pushover notification")
}
