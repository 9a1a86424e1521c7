package labapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"strategy-lab/internal/domain"
)

// unwrapDocument returns the JSON document inside body. Several endpoints
// reply with a JSON string that itself contains the JSON payload.
func unwrapDocument(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("decode wrapped document: %w", err)
	}
	return bytes.TrimSpace([]byte(inner)), nil
}

// decodeOrderedObject decodes a JSON object keeping its key order.
func decodeOrderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, errors.New("expected JSON object")
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// decodeRow turns one schema-free JSON object into a domain.Row.
func decodeRow(data []byte) (domain.Row, error) {
	keys, raws, err := decodeOrderedObject(data)
	if err != nil {
		return domain.Row{}, err
	}
	row := domain.Row{Columns: keys, Values: make(map[string]domain.Value, len(keys))}
	for _, key := range keys {
		v, err := decodeValue(raws[key])
		if err != nil {
			return domain.Row{}, fmt.Errorf("column %q: %w", key, err)
		}
		row.Values[key] = v
	}
	return row, nil
}

// decodeRows decodes a JSON array of objects.
func decodeRows(data []byte) ([]domain.Row, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	rows := make([]domain.Row, 0, len(items))
	for i, item := range items {
		row, err := decodeRow(item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeValue(raw json.RawMessage) (domain.Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return domain.Value{}, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return domain.Value{}, err
		}
		return domain.StringValue(s), nil
	case 't', 'f':
		b, err := strconv.ParseBool(string(trimmed))
		if err != nil {
			return domain.Value{}, err
		}
		return domain.BoolValue(b), nil
	case 'n':
		return domain.Value{Kind: domain.KindNull}, nil
	case '{', '[':
		return domain.StringValue(string(trimmed)), nil
	default:
		if _, err := strconv.ParseFloat(string(trimmed), 64); err != nil {
			return domain.Value{}, fmt.Errorf("invalid number %s", trimmed)
		}
		return domain.NumberValue(string(trimmed)), nil
	}
}

// splitList splits a comma-joined list, trimming items and dropping empties.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// joinList joins non-empty trimmed items with commas.
func joinList(items []string) string {
	return strings.Join(splitList(strings.Join(items, ",")), ",")
}

// flexDate accepts a date string or epoch milliseconds.
type flexDate string

func (d *flexDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*d = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = flexDate(s)
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid date %s", data)
	}
	*d = flexDate("@" + strconv.FormatInt(ms, 10))
	return nil
}
