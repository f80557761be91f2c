package storage

import "car-ads/models"

// ListingWriter is the interface any export backend must satisfy.
type ListingWriter interface {
	Write(runID string, listings []*models.Listing) error
	Close() error
}

// ListingStore is a ListingWriter that can read back what it stored.
type ListingStore interface {
	ListingWriter
	FetchAll() ([]*models.Listing, error)
}
