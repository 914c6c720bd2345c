package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/repository"
)

// jsonb column payloads. Money is kept in cents so values survive round trips exactly.

type appraisedBookRecord struct {
	ISBN        string    `json:"isbn"`
	Title       string    `json:"title,omitempty"`
	Condition   string    `json:"condition"`
	BaseCents   int64     `json:"base_cents"`
	OfferCents  int64     `json:"offer_cents"`
	AppraisedAt time.Time `json:"appraised_at"`
}

type addressRecord struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type estimateRecord struct {
	AmountCents  int64     `json:"amount_cents"`
	BookCount    int       `json:"book_count"`
	CalculatedAt time.Time `json:"calculated_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type orderLineRecord struct {
	ListingID      string `json:"listing_id"`
	ISBN           string `json:"isbn"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

func encodeBooks(books []domain.AppraisedBook) ([]byte, error) {
	records := make([]appraisedBookRecord, 0, len(books))
	for _, b := range books {
		records = append(records, appraisedBookRecord{
			ISBN:        b.ISBN,
			Title:       b.Title,
			Condition:   string(b.Condition),
			BaseCents:   int64(b.BasePrice),
			OfferCents:  int64(b.OfferPrice),
			AppraisedAt: b.AppraisedAt.UTC(),
		})
	}
	return marshalRecord("books", records)
}

func decodeBooks(raw []byte) ([]domain.AppraisedBook, error) {
	var records []appraisedBookRecord
	if err := unmarshalRecord("books", raw, &records); err != nil {
		return nil, err
	}
	books := make([]domain.AppraisedBook, 0, len(records))
	for _, r := range records {
		books = append(books, domain.AppraisedBook{
			ISBN:        r.ISBN,
			Title:       r.Title,
			Condition:   domain.BookCondition(r.Condition),
			BasePrice:   domain.Money(r.BaseCents),
			OfferPrice:  domain.Money(r.OfferCents),
			AppraisedAt: r.AppraisedAt.UTC(),
		})
	}
	return books, nil
}

func encodeAddress(a domain.Address) ([]byte, error) {
	return marshalRecord("address", addressRecord(a))
}

func decodeAddress(raw []byte) (domain.Address, error) {
	var rec addressRecord
	if err := unmarshalRecord("address", raw, &rec); err != nil {
		return domain.Address{}, err
	}
	return domain.Address(rec), nil
}

func encodeEstimate(e *domain.Estimate) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return marshalRecord("estimate", estimateRecord{
		AmountCents:  int64(e.Amount),
		BookCount:    e.BookCount,
		CalculatedAt: e.CalculatedAt.UTC(),
		ExpiresAt:    e.ExpiresAt.UTC(),
	})
}

func decodeEstimate(raw []byte) (*domain.Estimate, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rec estimateRecord
	if err := unmarshalRecord("estimate", raw, &rec); err != nil {
		return nil, err
	}
	return &domain.Estimate{
		Amount:       domain.Money(rec.AmountCents),
		BookCount:    rec.BookCount,
		CalculatedAt: rec.CalculatedAt.UTC(),
		ExpiresAt:    rec.ExpiresAt.UTC(),
	}, nil
}

func encodeLines(lines []domain.OrderLine) ([]byte, error) {
	records := make([]orderLineRecord, 0, len(lines))
	for _, l := range lines {
		records = append(records, orderLineRecord{
			ListingID:      l.ListingID,
			ISBN:           l.ISBN,
			UnitPriceCents: int64(l.UnitPrice),
			Quantity:       l.Quantity,
		})
	}
	return marshalRecord("lines", records)
}

func decodeLines(raw []byte) ([]domain.OrderLine, error) {
	var records []orderLineRecord
	if err := unmarshalRecord("lines", raw, &records); err != nil {
		return nil, err
	}
	lines := make([]domain.OrderLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, domain.OrderLine{
			ListingID: r.ListingID,
			ISBN:      r.ISBN,
			UnitPrice: domain.Money(r.UnitPriceCents),
			Quantity:  r.Quantity,
		})
	}
	return lines, nil
}

func marshalRecord(column string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", column, err)
	}
	return raw, nil
}

func unmarshalRecord(column string, raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w: %v", column, repository.ErrCorruptRecord, err)
	}
	return nil
}
