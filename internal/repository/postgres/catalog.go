package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// CatalogRepository reads list prices from books.catalog_listings.
type CatalogRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewCatalogRepository(exec pgExecutor) *CatalogRepository {
	return &CatalogRepository{exec: exec, builder: newBuilder()}
}

// LookupISBN returns the listing for a normalized ISBN, or (nil, nil) when unlisted.
func (r *CatalogRepository) LookupISBN(ctx context.Context, isbn string) (*domain.BookListing, error) {
	stmt, args, err := r.builder.Select("isbn", "title", "base_price_cents").
		From(table("catalog_listings")).
		Where(squirrel.Eq{"isbn": domain.NormalizeISBN(isbn)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select listing sql: %w", err)
	}

	var (
		listing domain.BookListing
		cents   int64
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&listing.ISBN, &listing.Title, &cents); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	listing.BasePrice = domain.Money(cents)
	return &listing, nil
}

// Upsert stores or reprices a listing.
func (r *CatalogRepository) Upsert(ctx context.Context, listing domain.BookListing) error {
	stmt, args, err := r.builder.Insert(table("catalog_listings")).
		Columns("isbn", "title", "base_price_cents").
		Values(domain.NormalizeISBN(listing.ISBN), listing.Title, int64(listing.BasePrice)).
		Suffix(`ON CONFLICT (isbn) DO UPDATE SET
			title = EXCLUDED.title,
			base_price_cents = EXCLUDED.base_price_cents,
			updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert listing sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}
	return nil
}

var _ port.BookCatalog = (*CatalogRepository)(nil)
