package search

import (
	"context"
	"fmt"

	"github.com/pulse-social/pulse/internal/domain"
)

const backfillBatch = 500

// Backfill indexes users in batches so an index created after the users
// were stored still finds them. It stops at the first failed batch.
func Backfill(ctx context.Context, idx UserIndex, users []*domain.User) (int, error) {
	done := 0
	for start := 0; start < len(users); start += backfillBatch {
		end := min(start+backfillBatch, len(users))
		if err := idx.IndexUsers(ctx, users[start:end]); err != nil {
			return done, fmt.Errorf("backfill users %d-%d: %w", start, end-1, err)
		}
		done = end
	}
	return done, nil
}
