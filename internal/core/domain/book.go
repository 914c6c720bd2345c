package domain

import (
	"strings"
	"time"
)

// BookCondition grades a physical copy.
type BookCondition string

const (
	ConditionExcellent BookCondition = "excellent"
	ConditionGood      BookCondition = "good"
	ConditionFair      BookCondition = "fair"
	ConditionPoor      BookCondition = "poor"
)

var conditionMultipliers = map[BookCondition]float64{
	ConditionExcellent: 0.8,
	ConditionGood:      0.6,
	ConditionFair:      0.4,
	ConditionPoor:      0.1,
}

// ParseBookCondition validates a condition name, case-insensitively.
func ParseBookCondition(value string) (BookCondition, error) {
	c := BookCondition(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := conditionMultipliers[c]; !ok {
		return "", NewValidationError("condition", "Invalid book condition: "+value)
	}
	return c, nil
}

// Multiplier is the share of the base price offered for a copy in this condition.
func (c BookCondition) Multiplier() float64 {
	return conditionMultipliers[c]
}

// OfferPrice computes round2(basePrice * multiplier).
func OfferPrice(basePrice Money, condition BookCondition) Money {
	return basePrice.Multiply(condition.Multiplier())
}

// AppraisedBook is one graded copy inside an appraisal.
type AppraisedBook struct {
	ISBN        string
	Title       string
	Condition   BookCondition
	BasePrice   Money
	OfferPrice  Money
	AppraisedAt time.Time
}

// NewAppraisedBook validates the inputs and prices the copy.
func NewAppraisedBook(isbn, title string, condition BookCondition, basePrice Money) (AppraisedBook, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return AppraisedBook{}, NewValidationError("isbn", "ISBN cannot be empty")
	}
	if _, ok := conditionMultipliers[condition]; !ok {
		return AppraisedBook{}, NewValidationError("condition", "Invalid book condition: "+string(condition))
	}
	if basePrice < 0 {
		return AppraisedBook{}, NewValidationError("base_price", "Base price cannot be negative")
	}

	return AppraisedBook{
		ISBN:        isbn,
		Title:       strings.TrimSpace(title),
		Condition:   condition,
		BasePrice:   basePrice,
		OfferPrice:  OfferPrice(basePrice, condition),
		AppraisedAt: time.Now().UTC(),
	}, nil
}

// NormalizeISBN strips separators and upper-cases the check digit.
func NormalizeISBN(isbn string) string {
	isbn = strings.TrimSpace(isbn)
	isbn = strings.NewReplacer("-", "", " ", "").Replace(isbn)
	return strings.ToUpper(isbn)
}

// BookListing is catalog data the appraisal and estimate flows price against.
type BookListing struct {
	ISBN      string
	Title     string
	BasePrice Money
}
