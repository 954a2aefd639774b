package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are permitted from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// QualityTier selects the generation model class.
type QualityTier string

const (
	QualityStandard QualityTier = "standard"
	QualityPremium  QualityTier = "premium"
)

// NormalizeQuality sanitizes free-form input into a supported tier.
func NormalizeQuality(q string) QualityTier {
	if QualityTier(q) == QualityPremium {
		return QualityPremium
	}
	return QualityStandard
}

// Job encapsulates the lifecycle of one image generation request. Status is
// written at most twice: processing at creation, then exactly one terminal
// value. A completed job references exactly one Asset owned by the same
// business; a failed job carries the captured error message.
type Job struct {
	ID                   string
	BusinessID           string
	Status               JobStatus
	Prompt               string
	Style                string
	AspectRatio          string
	Quality              QualityTier
	StyleReferenceURLs   []string
	SubjectReferenceURLs []string
	ResultAssetID        string
	ErrorMessage         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
