package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
)

type idleEvictor interface {
	EvictIdle(ctx context.Context) int
}

type visitorEvictionJob struct {
	registry idleEvictor
}

// NewVisitorEvictionJob drops in-memory visitor workspaces that went idle.
func NewVisitorEvictionJob(registry idleEvictor) (Job, error) {
	if registry == nil {
		return nil, fmt.Errorf("visitor registry required")
	}
	return visitorEvictionJob{registry: registry}, nil
}

func (visitorEvictionJob) Name() string { return "visitor-eviction" }

func (j visitorEvictionJob) Run(ctx context.Context) error {
	j.registry.EvictIdle(ctx)
	return nil
}

type expiredStatePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type clientStatePurgeJob struct {
	store expiredStatePurger
	logg  *logger.Logger
}

// NewClientStatePurgeJob deletes expired rows from the SQL visitor storage.
func NewClientStatePurgeJob(store expiredStatePurger, logg *logger.Logger) (Job, error) {
	if store == nil {
		return nil, fmt.Errorf("client state store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return clientStatePurgeJob{store: store, logg: logg}, nil
}

func (clientStatePurgeJob) Name() string { return "client-state-purge" }

func (j clientStatePurgeJob) Run(ctx context.Context) error {
	purged, err := j.store.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge client state: %w", err)
	}
	if purged > 0 {
		j.logg.Info(j.logg.WithField(ctx, "purged", purged), "expired client state purged")
	}
	return nil
}
