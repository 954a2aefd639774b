package domain

import "time"

// Business is the read-only brand profile generation runs on behalf of.
// Profile CRUD lives elsewhere; the pipeline only consumes it for prompt
// context and reference images.
type Business struct {
	ID                   string
	Name                 string
	Industry             string
	Description          string
	BrandVoice           string
	LogoURL              string
	SubjectReferenceURLs []string
	CreatedAt            time.Time
}
