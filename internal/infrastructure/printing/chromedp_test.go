package printing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpRenderer_Defaults(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, defaultChromeTimeout, r.config.DefaultTimeout)
	assert.Equal(t, defaultScale, r.config.Scale)
	assert.NotNil(t, r.allocCtx)
}

func TestNewChromedpRenderer_Remote(t *testing.T) {
	r, err := NewChromedpRenderer(&ChromedpConfig{
		RemoteURL:      "ws://127.0.0.1:9222",
		DefaultTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, r.config.DefaultTimeout)
	require.NoError(t, r.Close())
	assert.Error(t, r.allocCtx.Err())
}

func TestChromedpRenderer_RenderRejectsEmptyInput(t *testing.T) {
	r, err := NewChromedpRenderer(nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Render(context.Background(), nil)
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)

	_, err = r.Render(context.Background(), &RenderRequest{HTML: "   "})
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
}

func TestBuildPrintParams(t *testing.T) {
	r := &ChromedpRenderer{config: &ChromedpConfig{Scale: 1}}

	params := r.buildPrintParams(&RenderRequest{MarginMM: 25.4})
	assert.InDelta(t, 8.27, params.paperWidth, 0.01)
	assert.InDelta(t, 11.69, params.paperHeight, 0.01)
	assert.InDelta(t, 1.0, params.margin, 0.0001)
	assert.InDelta(t, 1.0, params.marginBottom, 0.0001)
	assert.False(t, params.landscape)

	withFooter := r.buildPrintParams(&RenderRequest{MarginMM: 5, FooterHTML: "<span></span>", Landscape: true})
	assert.InDelta(t, mmToInches(10), withFooter.marginBottom, 0.0001)
	assert.InDelta(t, mmToInches(5), withFooter.margin, 0.0001)
	assert.True(t, withFooter.landscape)
}

func TestBuildCompleteHTML(t *testing.T) {
	fragment := buildCompleteHTML(&RenderRequest{HTML: "<p>x</p>", Title: "Release Note"})
	assert.Equal(t, `<!DOCTYPE html><html><head><meta charset="UTF-8"><title>Release Note</title></head><body><p>x</p></body></html>`, fragment)

	doc := "<!DOCTYPE html><html><body>y</body></html>"
	assert.Equal(t, doc, buildCompleteHTML(&RenderRequest{HTML: doc}))
}

func TestEstimatePageCount(t *testing.T) {
	assert.Equal(t, 1, estimatePageCount(nil))
	pdf := []byte("<< /Type /Pages /Count 2 >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, estimatePageCount(pdf))
}
