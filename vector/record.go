package vector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Record is one indexed document: its Drive metadata plus the text
// extract captured when the document was embedded. TextExtract is nil
// when extraction failed for that document.
type Record struct {
	Metadata    map[string]any `json:"metadata"`
	TextExtract *string        `json:"text_extract"`
}

// Text extract field names recognized in the documents artifact, in
// priority order.
var extractFields = []string{"text_extract", "text", "content", "body"}

// loadRecords pairs the metadata artifact with the documents artifact
// into one index-aligned record sequence. Both artifacts must describe
// the same number of documents.
func loadRecords(metadataPath, documentsPath string) ([]*Record, error) {
	entries, err := loadMetadataEntries(metadataPath)
	if err != nil {
		return nil, err
	}

	extracts, err := loadExtracts(documentsPath)
	if err != nil {
		return nil, err
	}

	if len(entries) != len(extracts) {
		return nil, fmt.Errorf("%w: metadata entries (%d) and document extracts (%d) differ",
			ErrConfig, len(entries), len(extracts))
	}

	records := make([]*Record, len(entries))
	for i, entry := range entries {
		var metadata map[string]any
		if err := json.Unmarshal(entry, &metadata); err != nil || metadata == nil {
			// Non-object entries (including null) are wrapped so metadata
			// is always a map.
			var value any
			if err := json.Unmarshal(entry, &value); err != nil {
				return nil, fmt.Errorf("%w: metadata entry %d is not valid JSON", ErrConfig, i)
			}
			metadata = map[string]any{"value": value}
		}

		records[i] = &Record{
			Metadata:    metadata,
			TextExtract: extracts[i],
		}
	}

	return records, nil
}

// loadMetadataEntries reads the metadata artifact and returns its entries
// in document order. The root may be an object carrying an "items" array,
// any other object (whose values are taken in document order), or a plain
// array.
func loadMetadataEntries(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata file: %v", ErrConfig, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: metadata file %s is empty", ErrConfig, path)
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: metadata file %s: %v", ErrConfig, path, err)
		}
		return entries, nil

	case '{':
		keys, values, err := objectFields(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata file %s: %v", ErrConfig, path, err)
		}

		for i, key := range keys {
			if key != "items" {
				continue
			}
			var items []json.RawMessage
			if err := json.Unmarshal(values[i], &items); err == nil {
				return items, nil
			}
			// An "items" key that is not an array falls through to the
			// values-of-the-object behavior.
			break
		}
		return values, nil

	default:
		return nil, fmt.Errorf("%w: metadata file %s: root must be a JSON object or array", ErrConfig, path)
	}
}

// objectFields decodes a JSON object into parallel key/value slices,
// preserving document order. Row alignment depends on the order the
// producer wrote the entries in, so a plain map is not an option here.
func objectFields(data []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, nil, err
	}

	var (
		keys   []string
		values []json.RawMessage
	)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v in object", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}

		keys = append(keys, key)
		values = append(values, value)
	}

	return keys, values, nil
}

// loadExtracts reads the newline-delimited documents artifact. Every line
// contributes exactly one entry: blank or unparsable lines yield nil so
// positions stay aligned with the metadata entries.
func loadExtracts(path string) ([]*string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: documents file: %v", ErrConfig, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var extracts []*string
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			extracts = append(extracts, nil)
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			extracts = append(extracts, nil)
			continue
		}

		extracts = append(extracts, extractText(obj))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: documents file %s: %v", ErrConfig, path, err)
	}

	return extracts, nil
}

func extractText(obj map[string]any) *string {
	for _, field := range extractFields {
		s, ok := obj[field].(string)
		if ok && s != "" {
			return &s
		}
	}
	return nil
}
