package mail

import (
	"context"
	"sync"

	"auth-service/internal/identity/domain"
)

// DevMailbox keeps the latest message per recipient in memory so local
// clients can read verification links. Never enabled in production.
type DevMailbox struct {
	mu sync.RWMutex
	m  map[string]Message
}

// NewDevMailbox returns an empty mailbox.
func NewDevMailbox() *DevMailbox {
	return &DevMailbox{m: make(map[string]Message)}
}

// Send stores msg, replacing any earlier message to the same recipient.
func (b *DevMailbox) Send(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[domain.NormalizeEmail(msg.To)] = msg
	return nil
}

// Latest returns the last message sent to email.
func (b *DevMailbox) Latest(email string) (Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msg, ok := b.m[domain.NormalizeEmail(email)]
	return msg, ok
}
