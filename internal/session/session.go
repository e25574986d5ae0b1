// Package session owns the signed-in identity and the on-disk profile layout.
package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/store"
)

// ErrInvalidIdentity is returned for unusable login data.
var ErrInvalidIdentity = errors.New("invalid identity")

// Session is the explicit login context of one profile. The identity is read
// once from the store and cached; Begin and End write through.
type Session struct {
	db *store.DB

	mu   sync.RWMutex
	user *chat.User
}

// New creates a session bound to a profile database.
func New(db *store.DB) *Session {
	return &Session{db: db}
}

// Load reads the persisted identity. Returns chat.ErrNoSession when nobody is signed in.
func (s *Session) Load() (chat.User, error) {
	u, err := s.db.LoadIdentity()
	if err != nil {
		return chat.User{}, fmt.Errorf("load identity: %w", err)
	}
	if u == nil {
		return chat.User{}, chat.ErrNoSession
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return *u, nil
}

// Current returns the cached identity.
func (s *Session) Current() (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return chat.User{}, chat.ErrNoSession
	}
	return *s.user, nil
}

// Begin signs in with name and email, replacing any previous identity.
// Signing back in with the last email keeps the user id, so stored history
// still belongs to it. A different account starts from empty chats.
func (s *Session) Begin(name, email string) (chat.User, error) {
	u, err := NewIdentity(name, email)
	if err != nil {
		return chat.User{}, err
	}
	last, err := s.db.LastIdentity()
	if err != nil {
		return chat.User{}, fmt.Errorf("load last identity: %w", err)
	}
	switch {
	case last == nil:
	case last.Email == u.Email:
		u.ID = last.ID
	default:
		if err := s.db.ResetChats(); err != nil {
			return chat.User{}, fmt.Errorf("reset chats: %w", err)
		}
	}
	if err := s.db.SaveIdentity(u); err != nil {
		return chat.User{}, fmt.Errorf("save identity: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return u, nil
}

// End signs out. Conversations and history are kept.
func (s *Session) End() error {
	if err := s.db.ClearIdentity(); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return nil
}

// NewIdentity builds a user from login data. A blank name falls back to the
// local part of the email.
func NewIdentity(name, email string) (chat.User, error) {
	addr, err := validateEmail(email)
	if err != nil {
		return chat.User{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(addr, "@")
	}
	return chat.User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  addr,
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(name),
	}, nil
}
