// Package printing renders transition reports to PDF.
//
// A report template is an html/template file. PDFReportRenderer executes it
// with the run's ReportData through TemplateEngine, converts the HTML with a
// PDFRenderer (ChromedpRenderer in production) and writes the result to the
// output path chosen by the dispatcher.
//
// Example usage:
//
//	pdf, err := NewChromedpRenderer(&ChromedpConfig{NoSandbox: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pdf.Close()
//
//	renderer := NewPDFReportRenderer(NewTemplateEngine(), pdf, logger)
//	err = renderer.Render(ctx, "/templates/release-note.html", "/tmp/release-note-<run>.pdf", data)
package printing
