package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
)

// Write serializes rows into a dated CSV file under dir, creating the
// directory as needed, and returns the file path. An empty batch still
// produces a header-only file so the loader can observe "present but empty"
// (which is what drives soft deletes downstream).
func Write[T any](dir string, rows []T, ts time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	data, err := Marshal(rows)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fileName(ts))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, nil
}

// Marshal renders rows as CSV bytes, header included even for zero rows.
func Marshal[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	enc := csvutil.NewEncoder(w)
	if len(rows) == 0 {
		var header T
		if err := enc.EncodeHeader(header); err != nil {
			return nil, fmt.Errorf("encode csv header: %w", err)
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("encode csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadFile decodes every row of a UDM CSV file.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return decode[T](f, path)
}

func decode[T any](r io.Reader, name string) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header %s: %w", name, err)
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode csv row %s: %w", name, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
