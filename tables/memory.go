package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ruteri/identity-gateway/interfaces"
)

// MemoryStore is a process-local TableStore.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string]map[string]json.RawMessage{}}
}

func (s *MemoryStore) ListTables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) CreateTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		s.tables[name] = map[string]json.RawMessage{}
	}
	return nil
}

func (s *MemoryStore) DropTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) ListRows(ctx context.Context, table string) ([]interfaces.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, table)
	}

	out := make([]interfaces.Row, 0, len(rows))
	for key, value := range rows {
		out = append(out, interfaces.Row{Key: key, Value: append(json.RawMessage(nil), value...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) GetRow(ctx context.Context, table, key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, table)
	}
	value, ok := rows[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrRowNotFound, table, key)
	}
	return append(json.RawMessage(nil), value...), nil
}

func (s *MemoryStore) PutRow(ctx context.Context, table, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, table)
	}
	rows[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (s *MemoryStore) DeleteRow(ctx context.Context, table, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, table)
	}
	delete(rows, key)
	return nil
}
