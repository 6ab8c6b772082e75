package transition

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/itam/backend/internal/domain/shared"
)

// ReportTemplateSource points at a report template on disk
type ReportTemplateSource struct {
	shared.BaseEntity
	Name         string
	Slug         string
	TemplatePath string
}

// NewReportTemplateSource creates a report template entry
func NewReportTemplateSource(name, slug, templatePath string) (*ReportTemplateSource, error) {
	name = strings.TrimSpace(name)
	slug = strings.TrimSpace(slug)
	templatePath = strings.TrimSpace(templatePath)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Report template name cannot be empty")
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Report template slug cannot be empty")
	}
	if templatePath == "" {
		return nil, shared.NewDomainError("INVALID_TEMPLATE_PATH", "Report template path cannot be empty")
	}
	return &ReportTemplateSource{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         name,
		Slug:         slug,
		TemplatePath: templatePath,
	}, nil
}

// ReportFileName names the report a run renders from this template
func (r *ReportTemplateSource) ReportFileName(runID uuid.UUID) string {
	return ReportFileName(r.Slug, runID)
}

// ReportFileName returns "<template-slug>-<run-id>.pdf". Downstream tooling
// matches on this format, so it must not change.
func ReportFileName(templateSlug string, runID uuid.UUID) string {
	return fmt.Sprintf("%s-%s.pdf", templateSlug, runID.String())
}
