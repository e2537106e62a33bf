// Package search keeps an Elasticsearch index of user profiles for
// substring lookups over username and display name.
package search

import (
	"context"

	"github.com/pulse-social/pulse/internal/domain"
)

// UserIndex indexes users and returns matching ids, best match first.
type UserIndex interface {
	IndexUser(ctx context.Context, user *domain.User) error
	// IndexUsers writes users in one request. Existing documents are
	// replaced.
	IndexUsers(ctx context.Context, users []*domain.User) error
	SearchUsers(ctx context.Context, query string, limit int) ([]int64, error)
}
