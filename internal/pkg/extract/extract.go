// Package extract turns uploaded files into plain text. Each supported format
// tag maps to exactly one extraction routine; anything else fails closed.
package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParseFailure      = errors.New("parse failure")
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "txt"
)

var extensions = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".pptx": FormatPPTX,
	".csv":  FormatCSV,
	".json": FormatJSON,
	".txt":  FormatText,
	".md":   FormatText,
}

type extractFunc func(data []byte) (*Result, error)

var extractors = map[Format]extractFunc{
	FormatPDF:  extractPDF,
	FormatDOCX: extractDOCX,
	FormatPPTX: extractPPTX,
	FormatCSV:  extractCSV,
	FormatJSON: extractJSON,
	FormatText: extractText,
}

// Result is the extracted text of one file. PageOffsets[i] is the rune offset
// where page i+1 begins; it is empty for formats without pages.
type Result struct {
	Text        string
	PageOffsets []int
}

// PageAt returns the 1-based page containing the rune offset, or 0.
func (r *Result) PageAt(offset int) int {
	if r == nil || len(r.PageOffsets) == 0 {
		return 0
	}
	i := sort.Search(len(r.PageOffsets), func(i int) bool { return r.PageOffsets[i] > offset })
	if i == 0 {
		return 1
	}
	return i
}

// FormatFromFilename resolves the format tag from the file extension.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Supported lists the format tags in a stable order.
func Supported() []Format {
	out := make([]Format, 0, len(extractors))
	for f := range extractors {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Extract reads r fully and extracts its text. Empty input yields an empty
// Result without error.
func Extract(format Format, r io.Reader) (res *Result, err error) {
	fn, ok := extractors[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s input: %v", ErrParseFailure, format, err)
	}
	if len(data) == 0 {
		return &Result{}, nil
	}

	// parsers may panic on malformed input
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: %s: %v", ErrParseFailure, format, p)
		}
	}()

	res, err = fn(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParseFailure, format, err)
	}
	return res, nil
}
