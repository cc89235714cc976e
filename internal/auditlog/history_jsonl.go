package auditlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	dErrors "marketparticipant/pkg/domain-errors"
)

// ReadJSONL decodes one snapshot per line. Blank lines are skipped.
func ReadJSONL[T any](r io.Reader) ([]Snapshot[T], error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []Snapshot[T]
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var s Snapshot[T]
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("decode snapshot on line %d", line))
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read snapshots")
	}
	return out, nil
}

// WriteJSONL encodes one snapshot per line.
func WriteJSONL[T any](w io.Writer, snapshots []Snapshot[T]) error {
	enc := json.NewEncoder(w)
	for _, s := range snapshots {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

// JSONLHistory reads exported histories from a directory holding one
// "<key>.jsonl" file per entity.
type JSONLHistory[K fmt.Stringer, T any] struct {
	dir string
}

func NewJSONLHistory[K fmt.Stringer, T any](dir string) *JSONLHistory[K, T] {
	return &JSONLHistory[K, T]{dir: dir}
}

func (h *JSONLHistory[K, T]) History(_ context.Context, key K) ([]Snapshot[T], error) {
	f, err := os.Open(filepath.Join(h.dir, key.String()+".jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "open history export")
	}
	defer f.Close()
	return ReadJSONL[T](f)
}
