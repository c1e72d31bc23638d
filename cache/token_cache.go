// Package cache provides a short-lived cache of verified token records
// keyed by token id, consulted before the authoritative repository on
// the bearer verification path.
package cache

import (
	"context"
	"errors"

	"go.pilab.hu/gatekeeper/domain"
)

// ErrNotCached is returned by Get when the id has no live entry.
var ErrNotCached = errors.New("token not cached")

//go:generate mockgen -source=$GOFILE -destination=../mocks/mock_$GOPACKAGE/mock_$GOFILE -package=mock_$GOPACKAGE

// TokenCache caches token records between verifications. Entries must
// expire no later than the token they cache; Delete is called on
// revocation so a disabled token never outlives its record.
type TokenCache interface {
	Set(ctx context.Context, token *domain.Token) error
	Get(ctx context.Context, id string) (*domain.Token, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
