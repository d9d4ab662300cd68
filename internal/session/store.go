package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/gheehive-storefront/pkg/observe"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
	"github.com/angelmondragon/gheehive-storefront/pkg/types"
	"go.uber.org/multierr"
)

// User is the identity snapshot persisted alongside the bearer token.
type User struct {
	ID       int64         `json:"id"`
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Provider string        `json:"provider,omitempty"`
	Phone    string        `json:"phone,omitempty"`
	Address  types.Address `json:"address"`
}

// UserFromRemote maps the backend user record onto the session snapshot.
func UserFromRemote(u strapi.User) User {
	phone := strings.TrimSpace(u.Phone.String())
	return User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Provider: u.Provider,
		Phone:    phone,
		Address: types.Address{
			FullName: u.FullName,
			Phone:    phone,
			Line1:    u.AddressLine1,
			Line2:    u.AddressLine2,
			City:     u.City,
			State:    u.State,
			Pincode:  u.Pin.String(),
			Landmark: u.Landmark,
		},
	}
}

// Snapshot is the read model published to subscribers. The token never leaves the server.
type Snapshot struct {
	Identified bool  `json:"identified"`
	User       *User `json:"user,omitempty"`
}

// Store holds one visitor's bearer token and user identity. Token and user are
// always set or cleared together.
type Store struct {
	mu        sync.RWMutex
	visitorID string
	storage   storage.Store
	token     string
	user      *User
	hub       observe.Hub[Snapshot]
}

func NewStore(visitorID string, st storage.Store) (*Store, error) {
	if strings.TrimSpace(visitorID) == "" {
		return nil, fmt.Errorf("visitor id required")
	}
	if st == nil {
		return nil, fmt.Errorf("storage required")
	}
	return &Store{visitorID: visitorID, storage: st}, nil
}

// Load restores the persisted session. A half-written pair is discarded.
func (s *Store) Load(ctx context.Context) error {
	rawToken, hasToken, err := s.storage.Load(ctx, s.visitorID, storage.SlotSessionToken)
	if err != nil {
		return fmt.Errorf("load session token: %w", err)
	}
	rawUser, hasUser, err := s.storage.Load(ctx, s.visitorID, storage.SlotSessionUser)
	if err != nil {
		return fmt.Errorf("load session user: %w", err)
	}

	var user User
	if hasUser {
		if err := json.Unmarshal(rawUser, &user); err != nil {
			hasUser = false
		}
	}
	token := strings.TrimSpace(string(rawToken))
	if !hasToken || !hasUser || token == "" || user.ID == 0 {
		if hasToken || hasUser {
			return s.Clear(ctx)
		}
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	return nil
}

// Set stores a freshly issued token together with its user.
func (s *Store) Set(ctx context.Context, token string, user User) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("session token required")
	}
	if user.ID == 0 {
		return fmt.Errorf("session user id required")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	if err := s.storage.Save(ctx, s.visitorID, storage.SlotSessionUser, encoded); err != nil {
		return fmt.Errorf("persist session user: %w", err)
	}
	if err := s.storage.Save(ctx, s.visitorID, storage.SlotSessionToken, []byte(token)); err != nil {
		rollback := s.storage.Delete(ctx, s.visitorID, storage.SlotSessionUser)
		return multierr.Append(fmt.Errorf("persist session token: %w", err), rollback)
	}

	s.mu.Lock()
	s.token = token
	copied := user
	s.user = &copied
	s.mu.Unlock()

	s.publish()
	return nil
}

// UpdateUser replaces the user snapshot of an identified session.
func (s *Store) UpdateUser(ctx context.Context, user User) error {
	s.mu.RLock()
	current := s.user
	s.mu.RUnlock()
	if current == nil {
		return fmt.Errorf("no active session")
	}
	if user.ID != current.ID {
		return fmt.Errorf("user %d does not match session user %d", user.ID, current.ID)
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := s.storage.Save(ctx, s.visitorID, storage.SlotSessionUser, encoded); err != nil {
		return fmt.Errorf("persist session user: %w", err)
	}

	s.mu.Lock()
	copied := user
	s.user = &copied
	s.mu.Unlock()

	s.publish()
	return nil
}

// Clear removes token and user.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.visitorID, storage.SlotSessionToken, storage.SlotSessionUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.publish()
	return nil
}

// Current returns the bearer token and a copy of the user when identified.
func (s *Store) Current() (string, User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return "", User{}, false
	}
	return s.token, *s.user, true
}

func (s *Store) IsIdentified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return Snapshot{}
	}
	copied := *s.user
	return Snapshot{Identified: true, User: &copied}
}

func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.hub.Subscribe(fn)
}

func (s *Store) publish() {
	s.hub.Publish(s.Snapshot())
}
