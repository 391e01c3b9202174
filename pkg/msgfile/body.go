package msgfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidMessage — запись нельзя превратить в тело сообщения.
var ErrInvalidMessage = errors.New("invalid message record")

// ParseBody — одна JSON-запись в тело сообщения.
// Строка разворачивается в свой текст, остальные значения кладутся компактным JSON.
// null и пустые строки отклоняются.
func ParseBody(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", ErrInvalidMessage, err)
	}
	// гарантируем одну запись без хвоста
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: invalid json: trailing data", ErrInvalidMessage)
	}

	trimmed := bytes.TrimSpace(v)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, fmt.Errorf("%w: null record", ErrInvalidMessage)
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: invalid string: %w", ErrInvalidMessage, err)
		}
		if len(bytes.TrimSpace([]byte(s))) == 0 {
			return nil, fmt.Errorf("%w: empty body", ErrInvalidMessage)
		}
		return []byte(s), nil
	}

	var out bytes.Buffer
	if err := json.Compact(&out, trimmed); err != nil {
		return nil, fmt.Errorf("%w: compact: %w", ErrInvalidMessage, err)
	}
	return out.Bytes(), nil
}

// ParseJSON — JSON-документ целиком: массив раскрывается в сообщения поэлементно,
// любое другое значение — одно сообщение. Одна плохая запись отклоняет весь документ.
func ParseJSON(raw []byte) ([][]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		body, err := ParseBody(trimmed)
		if err != nil {
			return nil, err
		}
		return [][]byte{body}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: invalid json array: %w", ErrInvalidMessage, err)
	}
	bodies := make([][]byte, 0, len(items))
	for i, it := range items {
		body, err := ParseBody(it)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}
