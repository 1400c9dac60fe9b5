package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts plain text page by page and records where each page
// starts. Pages without a content stream contribute no text.
func extractPDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	offsets := make([]int, 0, total)
	var b strings.Builder
	runes := 0
	for i := 1; i <= total; i++ {
		offsets = append(offsets, runes)
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if text == "" {
			continue
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		b.WriteString(text)
		runes += utf8.RuneCountInString(text)
	}
	return &Result{Text: b.String(), PageOffsets: offsets}, nil
}
