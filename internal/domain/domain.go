package domain

import "errors"

// ErrUnknownVectorName is returned when a query names a vector space
// that is not one of the two configured names. The API layer maps it
// to a client error.
var ErrUnknownVectorName = errors.New("unknown vector space name")

// ErrNoCaptions is returned when a dataset record carries no captions;
// such records cannot produce a text vector and are rejected at import.
var ErrNoCaptions = errors.New("record has no captions")

// DatasetRecord is a single line of the import dataset: an image URL
// plus the captions describing it.
type DatasetRecord struct {
	ImageURL string   `json:"coco_url"`
	Captions []string `json:"answer"`
}

// SearchHit is one ranked result of a query: the stored image URL and
// its captions, annotated with the similarity score reported by the
// vector index.
type SearchHit struct {
	ImageURL string
	Captions []string
	Score    float32
}
