package store

import (
	"context"
	"fmt"
	"path/filepath"
)

// Options selects and configures the durable backend.
type Options struct {
	// Backend is one of "auto" (default), "mongo", "sqlite", "json" or
	// "memory". "auto" and "mongo" both mean MongoDB.
	Backend string
	DataDir string
	Mongo   MongoOptions
}

// Open creates the durable Store described by opts.
//
// Supported backends:
//
//	"auto", "mongo" - MongoDB at opts.Mongo.URI (default)
//	"sqlite"        - SQLite database at DataDir/admin.db
//	"json"          - JSON files in DataDir
//	"memory"        - in-memory, seeded with fixtures
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "auto", "mongo", "":
		s, err := ConnectMongo(ctx, opts.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSqliteStore(filepath.Join(opts.DataDir, "admin.db"))
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("sqlite ping: %w", err)
		}
		return s, nil
	case "json":
		s, err := NewJsonFileStore(opts.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: auto, mongo, sqlite, json, memory)", opts.Backend)
	}
}
