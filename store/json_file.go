package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/stevemurr/franchise-admin/model"
)

// JsonFileBackend stores each collection as a separate JSON file on disk.
//
// Layout:
//
//	data_dir/
//	  _sequences.json   # last id handed out per collection
//	  users.json        # "users" collection, keyed by id
//	  orders.json       # "orders" collection
type JsonFileBackend struct {
	mu  sync.RWMutex
	dir string
}

var _ Backend = (*JsonFileBackend)(nil)

func NewJsonFileBackend(dir string) (*JsonFileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &JsonFileBackend{dir: dir}, nil
}

// NewJsonFileStore returns a store persisting to JSON files under dir.
func NewJsonFileStore(dir string) (*DocStore, error) {
	b, err := NewJsonFileBackend(dir)
	if err != nil {
		return nil, fmt.Errorf("open json store %s: %w", dir, err)
	}
	return newDocStore(b), nil
}

func (s *JsonFileBackend) Name() string { return "json" }

func (s *JsonFileBackend) collectionPath(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *JsonFileBackend) sequencesPath() string {
	return filepath.Join(s.dir, "_sequences.json")
}

func (s *JsonFileBackend) loadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt %s: %w", filepath.Base(path), err)
	}
	return nil
}

// saveFile writes through a temp file so a crash never leaves a truncated
// collection behind.
func (s *JsonFileBackend) saveFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *JsonFileBackend) loadCollection(collection string) (map[int]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := s.loadFile(s.collectionPath(collection), &raw); err != nil {
		return nil, err
	}
	result := make(map[int]json.RawMessage, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		result[id] = v
	}
	return result, nil
}

func (s *JsonFileBackend) saveCollection(collection string, docs map[int]json.RawMessage) error {
	raw := make(map[string]json.RawMessage, len(docs))
	for id, v := range docs {
		raw[strconv.Itoa(id)] = v
	}
	return s.saveFile(s.collectionPath(collection), raw)
}

func (s *JsonFileBackend) loadSequences() (map[string]int, error) {
	seqs := map[string]int{}
	if err := s.loadFile(s.sequencesPath(), &seqs); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (s *JsonFileBackend) All(_ context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	result := make([][]byte, 0, len(ids))
	for _, id := range ids {
		result = append(result, []byte(docs[id]))
	}
	return result, nil
}

func (s *JsonFileBackend) Get(_ context.Context, collection string, id int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[id]
	if !ok {
		return nil, nil
	}
	return []byte(doc), nil
}

func (s *JsonFileBackend) Create(_ context.Context, collection string, build func(id int) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}
	seqs, err := s.loadSequences()
	if err != nil {
		return nil, err
	}
	id := seqs[collection]
	for existing := range docs {
		id = max(id, existing)
	}
	id++

	data, err := build(id)
	if err != nil {
		return nil, err
	}
	// Sequence first: a failed write may skip an id but never leaves a
	// document behind.
	seqs[collection] = id
	if err := s.saveFile(s.sequencesPath(), seqs); err != nil {
		return nil, err
	}
	docs[id] = json.RawMessage(data)
	if err := s.saveCollection(collection, docs); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *JsonFileBackend) Insert(_ context.Context, collection string, id int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return err
	}
	if _, exists := docs[id]; exists {
		return fmt.Errorf("%s %d: %w", collection, id, model.ErrIdentityCollision)
	}
	seqs, err := s.loadSequences()
	if err != nil {
		return err
	}
	seqs[collection] = max(seqs[collection], id)
	if err := s.saveFile(s.sequencesPath(), seqs); err != nil {
		return err
	}
	docs[id] = json.RawMessage(data)
	return s.saveCollection(collection, docs)
}

func (s *JsonFileBackend) Modify(_ context.Context, collection string, id int, fn func([]byte) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return nil, err
	}
	current, ok := docs[id]
	if !ok {
		return nil, nil
	}
	next, err := fn([]byte(current))
	if err != nil {
		return nil, err
	}
	docs[id] = json.RawMessage(next)
	if err := s.saveCollection(collection, docs); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *JsonFileBackend) Delete(_ context.Context, collection string, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadCollection(collection)
	if err != nil {
		return false, err
	}
	if _, ok := docs[id]; !ok {
		return false, nil
	}
	delete(docs, id)
	return true, s.saveCollection(collection, docs)
}

func (s *JsonFileBackend) Ping(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *JsonFileBackend) Close() error { return nil }
