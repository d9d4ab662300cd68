package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/gheehive-storefront/internal/address"
	"github.com/angelmondragon/gheehive-storefront/internal/cart"
	"github.com/angelmondragon/gheehive-storefront/internal/session"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

const invalidCredentialsMessage = "invalid credentials"

type backend interface {
	Login(ctx context.Context, identifier, password string) (*strapi.AuthResponse, error)
	Register(ctx context.Context, username, email, password string) (*strapi.AuthResponse, error)
	Me(ctx context.Context, token string) (*strapi.User, error)
	UpdateUser(ctx context.Context, token string, id int64, update strapi.UserUpdate) (*strapi.User, error)
}

// SessionStore is the visitor session the service writes to.
type SessionStore interface {
	Set(ctx context.Context, token string, user session.User) error
	UpdateUser(ctx context.Context, user session.User) error
	Clear(ctx context.Context) error
	Current() (string, session.User, bool)
	Snapshot() session.Snapshot
}

// CartStore is the visitor cart reconciled on login.
type CartStore interface {
	Sync(ctx context.Context) (cart.SyncResult, error)
	Clear(ctx context.Context) (cart.Result, error)
}

// Service defines credential login and profile management.
type Service interface {
	Login(ctx context.Context, sess SessionStore, c CartStore, req LoginRequest) (*Outcome, error)
	Register(ctx context.Context, sess SessionStore, c CartStore, req RegisterRequest) (*Outcome, error)
	Logout(ctx context.Context, sess SessionStore, c CartStore) error
	Refresh(ctx context.Context, sess SessionStore) (*Outcome, error)
	UpdateProfile(ctx context.Context, sess SessionStore, req ProfileRequest) (*Outcome, error)
}

type service struct {
	api  backend
	logg *logger.Logger
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Backend backend
	Logger  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &service{api: params.Backend, logg: params.Logger}, nil
}

func (s *service) Login(ctx context.Context, sess SessionStore, c CartStore, req LoginRequest) (*Outcome, error) {
	auth, err := s.api.Login(ctx, strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, invalidCredentialsMessage)
		}
		return nil, err
	}
	return s.establish(ctx, sess, c, auth)
}

func (s *service) Register(ctx context.Context, sess SessionStore, c CartStore, req RegisterRequest) (*Outcome, error) {
	auth, err := s.api.Register(ctx, strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, sess, c, auth)
}

// establish stores the new session and reconciles the cart against it.
func (s *service) establish(ctx context.Context, sess SessionStore, c CartStore, auth *strapi.AuthResponse) (*Outcome, error) {
	if auth == nil || strings.TrimSpace(auth.JWT) == "" || auth.User.ID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned an incomplete session")
	}
	if err := sess.Set(ctx, auth.JWT, session.UserFromRemote(auth.User)); err != nil {
		return nil, err
	}
	out := &Outcome{Session: sess.Snapshot()}
	res, err := c.Sync(ctx)
	if err != nil {
		s.logError(ctx, "cart sync after login", err)
		return out, nil
	}
	out.Sync = &res
	return out, nil
}

// Logout drops the session first so clearing the local cart never empties the remote one.
func (s *service) Logout(ctx context.Context, sess SessionStore, c CartStore) error {
	if err := sess.Clear(ctx); err != nil {
		return err
	}
	if _, err := c.Clear(ctx); err != nil {
		return err
	}
	return nil
}

// Refresh re-reads the profile. A rejected token ends the session.
func (s *service) Refresh(ctx context.Context, sess SessionStore) (*Outcome, error) {
	token, current, ok := sess.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	remote, err := s.api.Me(ctx, token)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnauthorized {
			if clearErr := sess.Clear(ctx); clearErr != nil {
				s.logError(ctx, "clear rejected session", clearErr)
			}
		}
		return nil, err
	}
	user := session.UserFromRemote(*remote)
	if user.ID != current.ID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile does not belong to this session")
	}
	if err := sess.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return &Outcome{Session: sess.Snapshot()}, nil
}

func (s *service) UpdateProfile(ctx context.Context, sess SessionStore, req ProfileRequest) (*Outcome, error) {
	token, current, ok := sess.Current()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}

	update := strapi.UserUpdate{}
	if req.Address != nil {
		addr := req.Address.Normalize()
		if err := address.Validate(addr); err != nil {
			return nil, err
		}
		update = session.AddressUpdate(addr)
	}
	if req.Username != nil {
		v := strings.TrimSpace(*req.Username)
		update.Username = &v
	}
	if req.Email != nil {
		v := strings.TrimSpace(*req.Email)
		update.Email = &v
	}

	remote, err := s.api.UpdateUser(ctx, token, current.ID, update)
	if err != nil {
		return nil, err
	}
	if err := sess.UpdateUser(ctx, session.UserFromRemote(*remote)); err != nil {
		return nil, err
	}
	return &Outcome{Session: sess.Snapshot()}, nil
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}
