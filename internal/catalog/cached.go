package catalog

import (
	"context"
	"errors"

	"courtly/internal/shared/constants"
	"courtly/pkg/cache"
)

// cachedRepository is a read-through Redis cache in front of Repository.
type cachedRepository struct {
	next  Repository
	cache cache.Service
}

// NewCachedRepository wraps next with a read-through cache.
func NewCachedRepository(next Repository, c cache.Service) Repository {
	return &cachedRepository{next: next, cache: c}
}

func (r *cachedRepository) GetCourt(ctx context.Context, id int64) (*Court, error) {
	var court Court
	err := r.cache.GetOrSet(ctx, constants.BuildCourtKey(id), constants.TTL_COURT, &court, func() (interface{}, error) {
		return r.next.GetCourt(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &court, nil
}

func (r *cachedRepository) GetServices(ctx context.Context, ids []int64) ([]Service, error) {
	var out []Service
	var misses []int64
	for _, id := range ids {
		var s Service
		if err := r.cache.Get(ctx, constants.BuildServiceKey(id), &s); err != nil {
			misses = append(misses, id)
			continue
		}
		out = append(out, s)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := r.next.GetServices(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, s := range fetched {
		_ = r.cache.Set(ctx, constants.BuildServiceKey(s.ID), s, constants.TTL_SERVICE)
	}
	return append(out, fetched...), nil
}

func (r *cachedRepository) GetBranchServices(ctx context.Context, ids []int64) ([]BranchService, error) {
	var out []BranchService
	var misses []int64
	for _, id := range ids {
		var bs BranchService
		err := r.cache.Get(ctx, constants.BuildBranchServiceKey(id), &bs)
		if err != nil {
			if !errors.Is(err, cache.ErrCacheMiss) {
				return r.next.GetBranchServices(ctx, ids)
			}
			misses = append(misses, id)
			continue
		}
		out = append(out, bs)
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := r.next.GetBranchServices(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, bs := range fetched {
		_ = r.cache.Set(ctx, constants.BuildBranchServiceKey(bs.ID), bs, constants.TTL_BRANCH_SERVICE)
	}
	return append(out, fetched...), nil
}

// ListBranchServices is not cached; it backs the admin-facing service picker.
func (r *cachedRepository) ListBranchServices(ctx context.Context, branchID int64) ([]BranchService, error) {
	return r.next.ListBranchServices(ctx, branchID)
}

// Invalidate drops every cached catalog entry.
func Invalidate(ctx context.Context, c cache.Service) error {
	return c.DeletePattern(ctx, constants.PATTERN_INVALIDATE_CATALOG_ALL)
}
