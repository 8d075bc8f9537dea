package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/boardhub/tokenauth"
)

// MemoryProvider is an in-process directory keyed by normalized e-mail.
type MemoryProvider struct {
	mu    sync.RWMutex
	users map[string]tokenauth.UserRecord
}

func NewMemory() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]tokenauth.UserRecord)}
}

// Add inserts or replaces an account.
func (p *MemoryProvider) Add(rec tokenauth.UserRecord) {
	p.mu.Lock()
	p.users[normalize(rec.Subject)] = rec
	p.mu.Unlock()
}

func (p *MemoryProvider) GetUserByIdentifier(_ context.Context, identifier string) (tokenauth.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec, ok := p.users[normalize(identifier)]
	if !ok {
		return tokenauth.UserRecord{}, fmt.Errorf("users.MemoryProvider: %w", tokenauth.ErrUserNotFound)
	}
	return rec, nil
}

func (p *MemoryProvider) UpdatePasswordHash(_ context.Context, subject, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := normalize(subject)
	rec, ok := p.users[key]
	if !ok {
		return fmt.Errorf("users.MemoryProvider: %w", tokenauth.ErrUserNotFound)
	}
	rec.PasswordHash = newHash
	p.users[key] = rec
	return nil
}

var _ tokenauth.UserProvider = (*MemoryProvider)(nil)
