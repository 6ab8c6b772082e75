package printing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	apptransition "github.com/itam/backend/internal/application/transition"
	"github.com/itam/backend/internal/domain/asset"
	"github.com/itam/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePDFRenderer records the last request and returns canned output
type fakePDFRenderer struct {
	lastRequest *RenderRequest
	output      []byte
	err         error
}

func (f *fakePDFRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &RenderResult{PDFData: f.output, PageCount: 1, RenderDuration: time.Millisecond}, nil
}

func (f *fakePDFRenderer) Close() error { return nil }

func newReportData(t *testing.T) apptransition.ReportData {
	t.Helper()
	laptop, err := asset.NewAsset(asset.AssetTypeBackOffice, "SN-100", "")
	require.NoError(t, err)
	laptop.Price = decimal.NewFromFloat(4599.9)
	server, err := asset.NewAsset(asset.AssetTypeDataCenter, "", "BC-200")
	require.NoError(t, err)
	require.NoError(t, server.ChangeStatus(asset.StatusInService))

	return apptransition.ReportData{
		Assets:       []*asset.Asset{laptop, server},
		LoggedUser:   &identity.User{Username: "admin", FirstName: "Anna", LastName: "Nowak"},
		AffectedUser: &identity.User{Username: "jkowalski"},
		Timestamp:    time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC),
		RunID:        uuid.New(),
	}
}

func TestPDFReportRenderer_Render(t *testing.T) {
	pdf := &fakePDFRenderer{output: []byte("%PDF-1.4 report")}
	renderer := NewPDFReportRenderer(nil, pdf, nil)
	data := newReportData(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "release-note-run.pdf")
	err := renderer.Render(context.Background(), filepath.Join(dir, "release-note.html"), out, data)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report", string(written))

	require.NotNil(t, pdf.lastRequest)
	assert.Equal(t, "Release Note", pdf.lastRequest.Title)
	assert.Equal(t, float64(reportMarginMM), pdf.lastRequest.MarginMM)
	assert.Contains(t, pdf.lastRequest.FooterHTML, "pageNumber")

	html := pdf.lastRequest.HTML
	assert.Contains(t, html, "2024-03-01 09:15")
	assert.Contains(t, html, data.RunID.String())
	assert.Contains(t, html, "Anna Nowak")
	assert.Contains(t, html, "jkowalski")
	assert.Contains(t, html, "SN-100")
	assert.Contains(t, html, "BC-200")
	assert.Contains(t, html, "Back Office")
	assert.Contains(t, html, "In Service")
	assert.Contains(t, html, "4,599.90")
}

func TestPDFReportRenderer_RenderWithoutAffectedUser(t *testing.T) {
	pdf := &fakePDFRenderer{output: []byte("%PDF")}
	renderer := NewPDFReportRenderer(NewTemplateEngine(), pdf, nil)
	data := newReportData(t)
	data.AffectedUser = nil

	dir := t.TempDir()
	err := renderer.Render(context.Background(), filepath.Join(dir, "return-note.html"), filepath.Join(dir, "out.pdf"), data)
	require.NoError(t, err)
	assert.Equal(t, "Return Note", pdf.lastRequest.Title)
	assert.Contains(t, pdf.lastRequest.HTML, "<td>-</td>")
}

func TestPDFReportRenderer_Errors(t *testing.T) {
	data := newReportData(t)
	dir := t.TempDir()

	t.Run("missing template", func(t *testing.T) {
		pdf := &fakePDFRenderer{output: []byte("%PDF")}
		renderer := NewPDFReportRenderer(nil, pdf, nil)
		out := filepath.Join(dir, "a.pdf")

		err := renderer.Render(context.Background(), filepath.Join(dir, "unknown.html"), out, data)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeTemplateNotFound, renderErr.Code)
		assert.Nil(t, pdf.lastRequest)
		assert.NoFileExists(t, out)
	})

	t.Run("pdf failure", func(t *testing.T) {
		cause := NewRenderError(ErrCodeRenderTimeout, "PDF rendering timed out", context.DeadlineExceeded)
		renderer := NewPDFReportRenderer(nil, &fakePDFRenderer{err: cause}, nil)
		out := filepath.Join(dir, "b.pdf")

		err := renderer.Render(context.Background(), filepath.Join(dir, "release-note.html"), out, data)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NoFileExists(t, out)
	})

	t.Run("output not writable", func(t *testing.T) {
		renderer := NewPDFReportRenderer(nil, &fakePDFRenderer{output: []byte("%PDF")}, nil)

		err := renderer.Render(context.Background(), filepath.Join(dir, "release-note.html"), filepath.Join(dir, "missing", "c.pdf"), data)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeStorageFailed, renderErr.Code)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestHTMLReportRenderer_Render(t *testing.T) {
	renderer := NewHTMLReportRenderer(nil)
	data := newReportData(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "release.html")

	require.NoError(t, renderer.Render(context.Background(), filepath.Join(dir, "release-note.html"), out, data))
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "SN-100")
}

func TestReportTitle(t *testing.T) {
	assert.Equal(t, "Release Note", reportTitle("/srv/templates/release-note.html"))
	assert.Equal(t, "Loan Agreement", reportTitle("loan_agreement.html"))
	assert.Equal(t, "Protocol", reportTitle("protocol"))
}
