package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"folio/internal/cache"
	"folio/internal/dbclient"
	"folio/internal/secret"
	"folio/internal/service"
)

// services is the wired application: storage, cache and the two services
// every shell drives.
type services struct {
	posts    *service.PostService
	sessions *service.SessionRegistry
	emitter  service.EventEmitter
	closers  []io.Closer
}

func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openServices validates the config, opens the configured store and cache
// and builds the services on top.
func (c *CLI) openServices(ctx context.Context) (*services, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, closer, err := dbclient.Open(ctx, c.cfg.DBOptions(), secret.NewEnvStore(), c.logger)
	if err != nil {
		return nil, err
	}
	s := &services{
		emitter: service.LogEmitter{Logger: c.logger},
		closers: []io.Closer{closer},
	}

	var rc cache.Cache = cache.NewNullCache()
	if c.cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, c.cfg.RedisURL, "folio:")
		if err != nil {
			s.Close()
			return nil, err
		}
		rc = redisCache
		s.closers = append(s.closers, redisCache)
		c.logger.Debug("render cache enabled", "backend", "redis")
	}

	s.posts = service.NewPostService(store, service.PostServiceOptions{
		Cache:    rc,
		CacheTTL: c.cfg.CacheTTL,
		Emitter:  s.emitter,
		Logger:   c.logger,
	})
	s.sessions = service.NewSessionRegistry(service.SessionDeps{
		Store:   store,
		Emitter: s.emitter,
		Logger:  c.logger,
	})
	c.logger.Debug("store opened", "driver", c.cfg.Store.Driver)
	return s, nil
}
