package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrEmptyTitle      = errors.New("record title cannot be empty")
)

// RawRecord is one task as supplied by an ingestion source. It only lives for
// the duration of a normalization call.
type RawRecord struct {
	// Source names the collaborator and database the record came from.
	Source string
	// CategoryLabel is the source-supplied category, parsed by ParseCategory.
	CategoryLabel string
	// ExternalID is the stable id in the source system, if any.
	ExternalID string
	Title      string
	Status     string
	// DiscoveryCandidates come from the proposer field of the source.
	DiscoveryCandidates []string
	// DeliveryCandidates come from the assignee field of the source.
	DeliveryCandidates []string
	URL                string
}

// Validate checks the fields a record must carry and returns the parsed
// source category. Errors wrap ErrMalformedRecord.
func (r RawRecord) Validate() (Category, error) {
	if NormalizeText(r.Title) == "" {
		return CategoryUnknown, fmt.Errorf("%w: %w", ErrMalformedRecord, ErrEmptyTitle)
	}
	category, err := ParseCategory(r.CategoryLabel)
	if err != nil {
		return CategoryUnknown, fmt.Errorf("%w: category %q: %w", ErrMalformedRecord, r.CategoryLabel, err)
	}
	return category, nil
}
