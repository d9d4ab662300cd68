// Package catalog serves product listings from the backend through a
// generation-keyed Redis cache. Revalidation bumps the generation, which orphans
// every cached entry at once.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/gheehive-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/gheehive-storefront/pkg/errors"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/gheehive-storefront/pkg/redis"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

type productAPI interface {
	ListProducts(ctx context.Context, productType string) ([]strapi.Product, error)
	GetProduct(ctx context.Context, id int64) (*strapi.Product, error)
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	CatalogKey(parts ...string) string
}

type Service struct {
	api     productAPI
	cache   cache
	ttl     time.Duration
	metrics *metrics.Storefront
	logg    *logger.Logger
}

// NewService builds the catalog service. A nil cache reads straight through.
func NewService(api productAPI, c cache, ttl time.Duration, m *metrics.Storefront, logg *logger.Logger) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("product api required")
	}
	return &Service{api: api, cache: c, ttl: ttl, metrics: m, logg: logg}, nil
}

// List returns the products of productType; empty lists the whole catalog.
func (s *Service) List(ctx context.Context, productType string) ([]strapi.Product, error) {
	if productType != "" {
		parsed, err := enums.ParseProductType(productType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product type").
				WithDetails(map[string]string{"type": productType})
		}
		productType = parsed.String()
	}

	var products []strapi.Product
	err := s.cached(ctx, []string{"list", orAll(productType)}, &products, func() (any, error) {
		return s.api.ListProducts(ctx, productType)
	})
	return products, err
}

func (s *Service) Get(ctx context.Context, id int64) (*strapi.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	var product strapi.Product
	err := s.cached(ctx, []string{"product", strconv.FormatInt(id, 10)}, &product, func() (any, error) {
		return s.api.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Revalidate invalidates every cached listing and returns the new generation.
func (s *Service) Revalidate(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	gen, err := s.cache.Incr(ctx, s.cache.CatalogKey("generation"))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog cache unavailable")
	}
	return gen, nil
}

// cached decodes the entry at parts into out, or loads, stores and decodes it.
// Cache failures fall back to the backend.
func (s *Service) cached(ctx context.Context, parts []string, out any, load func() (any, error)) error {
	key := ""
	if s.cache != nil {
		if gen, err := s.generation(ctx); err == nil {
			key = s.cache.CatalogKey(append([]string{"g" + gen}, parts...)...)
			if raw, err := s.cache.Get(ctx, key); err == nil {
				if json.Unmarshal([]byte(raw), out) == nil {
					s.metrics.CatalogCache(true)
					return nil
				}
			} else if !pkgredis.IsMiss(err) {
				s.warn(ctx, "catalog cache read failed: "+err.Error())
			}
		} else {
			s.warn(ctx, "catalog generation read failed: "+err.Error())
		}
		s.metrics.CatalogCache(false)
	}

	value, err := load()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode catalog entry: %w", err)
	}
	if key != "" {
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			s.warn(ctx, "catalog cache write failed: "+err.Error())
		}
	}
	return json.Unmarshal(encoded, out)
}

func (s *Service) generation(ctx context.Context) (string, error) {
	raw, err := s.cache.Get(ctx, s.cache.CatalogKey("generation"))
	if pkgredis.IsMiss(err) {
		return "0", nil
	}
	return raw, err
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func orAll(productType string) string {
	if productType == "" {
		return "all"
	}
	return productType
}
