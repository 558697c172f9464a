package mail

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Log writes messages to the logger instead of delivering them and keeps a copy.
type Log struct {
	logger *zap.Logger
	mu     sync.Mutex
	sent   []*Message
}

// NewLog creates a log sender.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Send implements Sender.
func (l *Log) Send(_ context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	l.logger.Info("mail",
		zap.String("type", msg.Type),
		zap.String("to", msg.Recipient()),
		zap.String("subject", msg.Subject),
		zap.Strings("attachments", names),
	)
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()
	return nil
}

// Sent returns the messages sent so far.
func (l *Log) Sent() []*Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Message, len(l.sent))
	copy(out, l.sent)
	return out
}
