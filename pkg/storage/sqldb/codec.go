package sqldb

import (
	"encoding/json"
	"fmt"
)

// emptyVector is the stored form of an entry without an embedding.
const emptyVector = "[]"

// encodeVector serializes an embedding, mapping nil and empty to "[]".
func encodeVector(v []float64) (string, error) {
	if len(v) == 0 {
		return emptyVector, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeVector(s string) ([]float64, error) {
	if s == "" || s == emptyVector {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return v, nil
}

// encodeJSON serializes an arbitrary value, mapping nil to an empty string.
func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMap(s string) (map[string]interface{}, error) {
	if s == "" || s == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return m, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
