package domain

import "time"

// Asset represents a generated image artifact. An asset is created at most
// once per job, only on success, and is immutable thereafter.
type Asset struct {
	ID          string
	BusinessID  string
	URL         string
	Prompt      string
	Style       string
	AspectRatio string
	Quality     QualityTier
	CreatedAt   time.Time
}
