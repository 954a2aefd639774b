package orchestrator

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
)

var titleCaser = cases.Title(language.English)

// BuildPrompt assembles the textual generation request from the user prompt
// plus the structured brand context of the owning business.
func BuildPrompt(job *domain.Job, biz *domain.Business) string {
	parts := []string{}
	if prompt := strings.TrimSpace(job.Prompt); prompt != "" {
		parts = append(parts, prompt)
	}
	switch {
	case biz.Name != "" && biz.Industry != "":
		parts = append(parts, fmt.Sprintf("The image promotes \"%s\", a %s business.", biz.Name, strings.ToLower(biz.Industry)))
	case biz.Name != "":
		parts = append(parts, fmt.Sprintf("The image promotes \"%s\".", biz.Name))
	}
	if desc := strings.TrimSpace(biz.Description); desc != "" {
		parts = append(parts, "About the brand: "+desc+".")
	}
	if voice := strings.TrimSpace(biz.BrandVoice); voice != "" {
		parts = append(parts, "Brand voice: "+voice+".")
	}
	if style := strings.TrimSpace(job.Style); style != "" {
		parts = append(parts, "Visual style: "+titleCaser.String(style)+".")
	}
	parts = append(parts, "Keep products and logos faithful to the attached reference images.")
	if aspect := strings.TrimSpace(job.AspectRatio); aspect != "" {
		parts = append(parts, "Compose for a "+aspect+" aspect ratio.")
	}
	if len(parts) == 0 {
		return "Create a marketing image"
	}
	return strings.Join(parts, " ")
}
