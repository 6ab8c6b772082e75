package printing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const reportMarginMM = 15

// PDFReportRenderer renders transition reports: template to HTML, HTML to PDF,
// PDF to the output path.
type PDFReportRenderer struct {
	engine *TemplateEngine
	pdf    PDFRenderer
	logger *zap.Logger
}

// Ensure PDFReportRenderer implements ReportRenderer
var _ apptransition.ReportRenderer = (*PDFReportRenderer)(nil)

// NewPDFReportRenderer creates a new PDFReportRenderer
func NewPDFReportRenderer(engine *TemplateEngine, pdf PDFRenderer, logger *zap.Logger) *PDFReportRenderer {
	if engine == nil {
		engine = NewTemplateEngine()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFReportRenderer{engine: engine, pdf: pdf, logger: logger}
}

// Render writes the PDF report for data to outputPath. Any failure is
// returned; nothing is written unless the whole report rendered.
func (r *PDFReportRenderer) Render(ctx context.Context, templatePath, outputPath string, data apptransition.ReportData) error {
	view := newReportView(templatePath, data)

	html, err := r.engine.RenderFile(ctx, templatePath, view)
	if err != nil {
		return err
	}

	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:       html,
		Title:      view.Title,
		MarginMM:   reportMarginMM,
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center;"><span class="pageNumber"></span> / <span class="totalPages"></span></div>`,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, result.PDFData, 0o640); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to write report "+outputPath, err)
	}

	r.logger.Info("Report rendered",
		zap.String("template", templatePath),
		zap.String("output", outputPath),
		zap.String("run_id", data.RunID.String()),
		zap.Int("assets", len(data.Assets)),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration))
	return nil
}

// =============================================================================
// Template view
// =============================================================================

// reportView is what report templates see
type reportView struct {
	Title        string
	RunID        uuid.UUID
	Timestamp    time.Time
	LoggedUser   userView
	AffectedUser *userView
	Assets       []assetView
}

type userView struct {
	Username    string
	FullName    string
	DisplayName string
	Email       string
}

type assetView struct {
	ID      uuid.UUID
	Type    string
	SN      string
	Barcode string
	Status  string
	Price   decimal.Decimal
	Remarks string
}

func newReportView(templatePath string, data apptransition.ReportData) reportView {
	view := reportView{
		Title:     reportTitle(templatePath),
		RunID:     data.RunID,
		Timestamp: data.Timestamp,
		Assets:    make([]assetView, len(data.Assets)),
	}
	if data.LoggedUser != nil {
		view.LoggedUser = newUserView(data.LoggedUser)
	}
	if data.AffectedUser != nil {
		u := newUserView(data.AffectedUser)
		view.AffectedUser = &u
	}
	for i, a := range data.Assets {
		view.Assets[i] = newAssetView(a)
	}
	return view
}

func newUserView(u *identity.User) userView {
	return userView{
		Username:    u.Username,
		FullName:    u.FullName(),
		DisplayName: u.DisplayName(),
		Email:       u.Email,
	}
}

func newAssetView(a *asset.Asset) assetView {
	return assetView{
		ID:      a.ID,
		Type:    string(a.Type),
		SN:      deref(a.SN),
		Barcode: deref(a.Barcode),
		Status:  a.Status.String(),
		Price:   a.Price,
		Remarks: a.Remarks,
	}
}

// reportTitle derives "Release Note" from ".../release-note.html"
func reportTitle(templatePath string) string {
	name := strings.TrimSuffix(filepath.Base(templatePath), filepath.Ext(templatePath))
	return titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(name))
}

// HTMLReportRenderer writes the rendered HTML instead of a PDF. It is used
// when no browser is available.
type HTMLReportRenderer struct {
	engine *TemplateEngine
}

// NewHTMLReportRenderer creates a new HTMLReportRenderer
func NewHTMLReportRenderer(engine *TemplateEngine) *HTMLReportRenderer {
	if engine == nil {
		engine = NewTemplateEngine()
	}
	return &HTMLReportRenderer{engine: engine}
}

// Render writes the report HTML to outputPath
func (r *HTMLReportRenderer) Render(ctx context.Context, templatePath, outputPath string, data apptransition.ReportData) error {
	html, err := r.engine.RenderFile(ctx, templatePath, newReportView(templatePath, data))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(html), 0o640); err != nil {
		return fmt.Errorf("failed to write report %s: %w", outputPath, err)
	}
	return nil
}

var _ apptransition.ReportRenderer = (*HTMLReportRenderer)(nil)
