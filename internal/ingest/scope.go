package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailfold/mailfold/internal/models"
)

// ScopeCache is an optional read-through cache for scope lookups. It is
// a pure optimization: correctness relies only on the store, never on
// cache contents, because handler instances share no memory.
type ScopeCache interface {
	Get(ctx context.Context, address string) (*models.Scope, bool)
	Set(ctx context.Context, address string, scope *models.Scope)
}

// ScopeResolver maps a raw recipient address to the ownership boundary
// it belongs to.
type ScopeResolver struct {
	store ScopeStore
	cache ScopeCache
}

// NewScopeResolver creates a ScopeResolver. cache may be nil.
func NewScopeResolver(store ScopeStore, cache ScopeCache) *ScopeResolver {
	return &ScopeResolver{store: store, cache: cache}
}

// Resolve returns the scope for recipientAddress, or ErrScopeNotFound /
// ErrScopeDisabled when the address does not map to a verified, enabled
// destination. Both are terminal for the delivery attempt.
func (r *ScopeResolver) Resolve(ctx context.Context, recipientAddress string) (*models.Scope, error) {
	localPart, domainName, err := splitAddress(recipientAddress)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if scope, ok := r.cache.Get(ctx, recipientAddress); ok {
			return r.validate(scope, recipientAddress)
		}
	}

	scope, err := r.store.ResolveScope(ctx, localPart, domainName)
	if err != nil {
		return nil, storageErr("scope lookup", err)
	}

	validated, err := r.validate(scope, recipientAddress)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, recipientAddress, validated)
	}

	return validated, nil
}

func (r *ScopeResolver) validate(scope *models.Scope, recipientAddress string) (*models.Scope, error) {
	if scope == nil || !scope.Domain.IsVerified {
		return nil, fmt.Errorf("%w: no verified domain for %s", ErrScopeNotFound, recipientAddress)
	}

	if scope.Alias != nil && !scope.Alias.IsEnabled {
		return nil, fmt.Errorf("%w: alias for %s is disabled", ErrScopeDisabled, recipientAddress)
	}

	return scope, nil
}

// splitAddress splits an email address into lowercased local part and
// domain. The split is on the last "@" so quoted local parts containing
// "@" still resolve to the right domain.
func splitAddress(address string) (localPart, domain string, err error) {
	trimmed := strings.TrimSpace(address)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 || at == len(trimmed)-1 {
		return "", "", fmt.Errorf("%w: invalid recipient address %q", ErrMalformedPayload, address)
	}
	return strings.ToLower(trimmed[:at]), strings.ToLower(trimmed[at+1:]), nil
}
