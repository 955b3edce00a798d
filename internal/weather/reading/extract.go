// Package reading turns decoded station payloads into normalized measurements.
package reading

// Envelope keys holding the list of readings, in priority order.
const (
	KeyRecords = "records"
	KeyResults = "results"
	KeyData    = "data"
	KeyItems   = "items"

	// KeyFields is the nested mapping inside a record envelope.
	KeyFields = "fields"

	// KeyTotalCount carries the upstream row count on paged APIs.
	KeyTotalCount = "total_count"
)

var listKeys = []string{KeyResults, KeyData, KeyItems}

// Extract returns the raw readings held by a decoded JSON document,
// whatever its envelope shape. It never fails: a document with no known
// envelope is returned as the only reading.
func Extract(decoded any) []any {
	switch doc := decoded.(type) {
	case []any:
		return doc
	case map[string]any:
		if records, ok := doc[KeyRecords].([]any); ok {
			return flattenRecords(records)
		}
		for _, key := range listKeys {
			if items, ok := doc[key].([]any); ok {
				return items
			}
		}
		return []any{doc}
	}
	return []any{decoded}
}

// flattenRecords unwraps {"fields": {...}} envelopes, keeping other records as they are.
func flattenRecords(records []any) []any {
	out := make([]any, 0, len(records))
	for _, rec := range records {
		if envelope, ok := rec.(map[string]any); ok {
			if fields, ok := envelope[KeyFields].(map[string]any); ok {
				out = append(out, fields)
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// TotalCount returns the envelope's total_count field, if any.
func TotalCount(decoded any) (any, bool) {
	doc, ok := decoded.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := doc[KeyTotalCount]
	return v, ok
}
