package msgfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Sink — получатель распарсенных тел (обычно Send очереди).
type Sink func(ctx context.Context, body []byte) error

// Result — статистика чтения потока.
type Result struct {
	Sent    int
	Invalid int
}

func (r Result) String() string {
	return fmt.Sprintf("%d sent / %d invalid", r.Sent, r.Invalid)
}

// ScanJSONL — читает JSONL, каждую валидную строку отдаёт в sink.
// Пустые строки пропускаются, невалидные считаются и пропускаются.
// Ошибка sink прерывает чтение.
func ScanJSONL(ctx context.Context, ir io.Reader, sink Sink) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(ir)
	// запас на большие строки
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		body, err := ParseBody(line)
		if err != nil {
			res.Invalid++
			continue
		}
		if err := sink(ctx, body); err != nil {
			return res, fmt.Errorf("send line: %w", err)
		}
		res.Sent++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
