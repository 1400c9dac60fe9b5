package extract

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractText(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := requireText(data); err != nil {
		return nil, err
	}
	return &Result{Text: string(data)}, nil
}

// requireText rejects content that is not UTF-8 text, such as a binary file
// uploaded under a text extension.
func requireText(data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("content is not valid UTF-8")
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return fmt.Errorf("content is %s, not text", detected.String())
}
