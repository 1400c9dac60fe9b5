package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// extractCSV renders every data row as "column: value" pairs so each line is
// self-describing once it lands in a chunk.
func extractCSV(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := requireText(data); err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Result{}, nil
	}

	header := records[0]
	var b strings.Builder
	if len(records) == 1 {
		b.WriteString(strings.Join(header, ", "))
		b.WriteString("\n")
		return &Result{Text: b.String()}, nil
	}
	for _, row := range records[1:] {
		pairs := make([]string, 0, len(row))
		for i, value := range row {
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				name = strings.TrimSpace(header[i])
			}
			pairs = append(pairs, name+": "+strings.TrimSpace(value))
		}
		b.WriteString(strings.Join(pairs, ", "))
		b.WriteString("\n")
	}
	return &Result{Text: b.String()}, nil
}

// extractJSON flattens the document into "path: value" lines with object keys
// in sorted order.
func extractJSON(data []byte) (*Result, error) {
	decoder := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}

	var b strings.Builder
	flattenJSON(&b, "", doc)
	return &Result{Text: b.String()}, nil
}

func flattenJSON(b *strings.Builder, path string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := k
			if path != "" {
				next = path + "." + k
			}
			flattenJSON(b, next, v[k])
		}
	case []any:
		for i, item := range v {
			flattenJSON(b, path+"["+strconv.Itoa(i)+"]", item)
		}
	case nil:
		writeJSONLine(b, path, "null")
	case string:
		writeJSONLine(b, path, v)
	default:
		writeJSONLine(b, path, fmt.Sprint(v))
	}
}

func writeJSONLine(b *strings.Builder, path, value string) {
	if path == "" {
		b.WriteString(value)
	} else {
		b.WriteString(path + ": " + value)
	}
	b.WriteString("\n")
}
