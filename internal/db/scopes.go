package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailfold/mailfold/internal/models"
)

// ErrDomainNotFound is returned when a requested domain cannot be found.
var ErrDomainNotFound = errors.New("domain not found")

// ResolveScope looks up the domain for domainName and, when one exists,
// the alias for localPart. Returns nil when the domain is unknown;
// verification and enablement flags are returned as stored.
func ResolveScope(ctx context.Context, pool *pgxpool.Pool, localPart, domainName string) (*models.Scope, error) {
	var domain models.Domain
	err := pool.QueryRow(ctx, `
		SELECT id, owner_id, name, is_verified, created_at
		FROM domains
		WHERE name = $1
	`, domainName).Scan(
		&domain.ID,
		&domain.OwnerID,
		&domain.Name,
		&domain.IsVerified,
		&domain.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up domain: %w", err)
	}

	scope := &models.Scope{Domain: domain}

	var alias models.Alias
	err = pool.QueryRow(ctx, `
		SELECT id, domain_id, local_part, is_enabled, created_at
		FROM aliases
		WHERE domain_id = $1 AND local_part = $2
	`, domain.ID, localPart).Scan(
		&alias.ID,
		&alias.DomainID,
		&alias.LocalPart,
		&alias.IsEnabled,
		&alias.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return scope, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up alias: %w", err)
	}

	scope.Alias = &alias
	return scope, nil
}

// CreateDomain inserts a domain and populates its ID.
func CreateDomain(ctx context.Context, pool *pgxpool.Pool, domain *models.Domain) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO domains (owner_id, name, is_verified)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, domain.OwnerID, domain.Name, domain.IsVerified).Scan(&domain.ID, &domain.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("domain %s already exists", domain.Name)
		}
		return fmt.Errorf("failed to create domain: %w", err)
	}

	return nil
}

// CreateAlias inserts an alias and populates its ID.
func CreateAlias(ctx context.Context, pool *pgxpool.Pool, alias *models.Alias) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO aliases (domain_id, local_part, is_enabled)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, alias.DomainID, alias.LocalPart, alias.IsEnabled).Scan(&alias.ID, &alias.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create alias: %w", err)
	}

	return nil
}

// SetDomainVerified marks a domain as verified or not.
func SetDomainVerified(ctx context.Context, pool *pgxpool.Pool, domainID string, verified bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE domains SET is_verified = $2 WHERE id = $1
	`, domainID, verified)

	if err != nil {
		return fmt.Errorf("failed to set domain verified: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrDomainNotFound
	}

	return nil
}

// SetAliasEnabled enables or disables an alias.
func SetAliasEnabled(ctx context.Context, pool *pgxpool.Pool, aliasID string, enabled bool) error {
	_, err := pool.Exec(ctx, `
		UPDATE aliases SET is_enabled = $2 WHERE id = $1
	`, aliasID, enabled)

	if err != nil {
		return fmt.Errorf("failed to set alias enabled: %w", err)
	}

	return nil
}
