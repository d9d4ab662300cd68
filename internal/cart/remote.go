package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

// Remote is the per-user cart held by the backend.
type Remote interface {
	Pull(ctx context.Context, token string, userID int64) ([]Line, error)
	Push(ctx context.Context, token string, userID int64, lines []Line) error
}

type userAPI interface {
	Me(ctx context.Context, token string) (*strapi.User, error)
	UpdateUser(ctx context.Context, token string, id int64, update strapi.UserUpdate) (*strapi.User, error)
}

type userRecordRemote struct {
	api userAPI
}

// NewUserRecordRemote stores the cart in the `cart` field of the backend user record.
func NewUserRecordRemote(api userAPI) (Remote, error) {
	if api == nil {
		return nil, fmt.Errorf("user api required")
	}
	return userRecordRemote{api: api}, nil
}

func (r userRecordRemote) Pull(ctx context.Context, token string, userID int64) ([]Line, error) {
	user, err := r.api.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.ID != userID {
		return nil, fmt.Errorf("remote user %d does not match session user %d", user.ID, userID)
	}
	return FromRemote(user.Cart), nil
}

func (r userRecordRemote) Push(ctx context.Context, token string, userID int64, lines []Line) error {
	items := ToRemote(lines)
	_, err := r.api.UpdateUser(ctx, token, userID, strapi.UserUpdate{Cart: &items})
	return err
}
