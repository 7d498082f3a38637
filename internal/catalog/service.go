package catalog

import (
	"context"
	"fmt"
)

// LoadReference resolves the price tables for a booking on court: every
// active branch service of the court's branch, plus any branch service in
// usedIDs from elsewhere, and their parent services. Missing ids are left out
// of the maps so the pricing step can report them as unknown references.
func LoadReference(ctx context.Context, repo Repository, court *Court, usedIDs []int64) (*Reference, error) {
	offered, err := repo.ListBranchServices(ctx, court.BranchID)
	if err != nil {
		return nil, err
	}
	branchServices := IndexBranchServices(offered)

	var missing []int64
	for _, id := range uniqueIDs(usedIDs) {
		if _, ok := branchServices[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		extra, err := repo.GetBranchServices(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load branch services: %w", err)
		}
		for _, bs := range extra {
			branchServices[bs.ID] = bs
		}
	}

	serviceIDs := make([]int64, 0, len(branchServices))
	for _, bs := range branchServices {
		serviceIDs = append(serviceIDs, bs.ServiceID)
	}
	services, err := repo.GetServices(ctx, uniqueIDs(serviceIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}

	return &Reference{
		Court:          court,
		BranchServices: branchServices,
		Services:       IndexServices(services),
	}, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
