package backend

import (
	"context"
	"fmt"
	"os"

	pdflib "github.com/ledongthuc/pdf"
)

// EnginePDF is the local PDF engine name.
const EnginePDF = "pdf"

// PDFResult is the native payload of the PDF engine: plain text per page.
type PDFResult struct {
	Pages []string
}

func (r *PDFResult) Engine() string { return EnginePDF }

// PDFEngine extracts text from PDFs with ledongthuc/pdf.
type PDFEngine struct{}

func (PDFEngine) Name() string { return EnginePDF }

func (PDFEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EnginePDF, KindTimeout, err)
	}

	// ledongthuc/pdf wants a ReadSeeker plus size, so stage a temp file.
	tmp, err := os.CreateTemp("", "docbridge-pdf-*.pdf")
	if err != nil {
		return nil, parseErr(EnginePDF, KindServerError, fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(req.Data); err != nil {
		tmp.Close()
		return nil, parseErr(EnginePDF, KindServerError, fmt.Errorf("write temp file: %w", err))
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, parseErr(EnginePDF, KindMalformedInput, fmt.Errorf("open pdf: %w", err))
	}
	defer f.Close()

	result := &PDFResult{}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, parseErr(EnginePDF, KindTimeout, err)
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		result.Pages = append(result.Pages, text)
	}

	if len(result.Pages) == 0 {
		return nil, parseErr(EnginePDF, KindMalformedInput, fmt.Errorf("no extractable text"))
	}
	return result, nil
}
