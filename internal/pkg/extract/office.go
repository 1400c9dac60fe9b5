package extract

import (
	"bytes"

	"code.sajari.com/docconv/v2"
)

func extractDOCX(data []byte) (*Result, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

func extractPPTX(data []byte) (*Result, error) {
	text, _, err := docconv.ConvertPptx(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}
