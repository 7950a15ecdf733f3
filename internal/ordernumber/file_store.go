package ordernumber

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

type counterRecord struct {
	LastOrderNumber *int64 `json:"last_order_number"`
}

// FileStore keeps the counter in a small JSON document:
//
//	{"last_order_number": 12}
//
// Writes go through a temp file and rename so a crash never leaves a
// half-written record behind.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.readLast()
	if last == math.MaxInt64 {
		return 0, ErrCounterExhausted
	}
	next := last + 1
	if err := s.write(next); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *FileStore) readLast() int64 {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("order counter unreadable; starting from 0", zap.String("path", s.path), zap.Error(err))
		}
		return 0
	}
	var rec counterRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("order counter malformed; starting from 0", zap.String("path", s.path), zap.Error(err))
		return 0
	}
	if rec.LastOrderNumber == nil || *rec.LastOrderNumber < 0 {
		s.logger.Warn("order counter has no usable last_order_number; starting from 0", zap.String("path", s.path))
		return 0
	}
	return *rec.LastOrderNumber
}

func (s *FileStore) write(n int64) error {
	payload, err := json.Marshal(counterRecord{LastOrderNumber: &n})
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".order_counter-*")
	if err != nil {
		return fmt.Errorf("create temp counter: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write counter: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close counter: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace counter: %w", err)
	}
	return nil
}
