package msgfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"
	FormatJSONL InputFormat = "jsonl"
)

// ReadFile — открывает файл и отдаёт сообщения в sink (см. ReadFrom).
// Формат auto определяется по расширению, по умолчанию JSON.
func ReadFile(ctx context.Context, filePath string, format InputFormat, sink Sink) (Result, error) {
	if format == FormatAuto {
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".jsonl":
			format = FormatJSONL
		default:
			format = FormatJSON
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return ReadFrom(ctx, file, format, sink)
}

// ReadFrom — читает поток в заданном формате; auto трактуется как JSONL (stdin).
func ReadFrom(ctx context.Context, r io.Reader, format InputFormat, sink Sink) (Result, error) {
	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(r)
		if err != nil {
			return Result{}, fmt.Errorf("read input: %w", err)
		}
		bodies, err := ParseJSON(raw)
		if err != nil {
			return Result{Invalid: 1}, err
		}
		var res Result
		for _, b := range bodies {
			if err := sink(ctx, b); err != nil {
				return res, fmt.Errorf("send: %w", err)
			}
			res.Sent++
		}
		return res, nil

	case FormatJSONL, FormatAuto:
		return ScanJSONL(ctx, r, sink)

	default:
		return Result{}, fmt.Errorf("unsupported format: %s", format)
	}
}
