package database

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/noah-isme/sims-api/pkg/config"
)

// NewBolt opens (or creates) the embedded bbolt database file.
func NewBolt(cfg config.BoltConfig) (*bbolt.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "./data/sims.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	return db, nil
}
