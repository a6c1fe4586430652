package filesystem

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"memeverse/core"

	"github.com/sirupsen/logrus"
)

// fsStore keeps one file per preference key under a base directory.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based preference store.
func NewStore(basePath string) core.PreferenceStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

// keyPath maps a preference key to a file, refusing anything that would
// escape the base directory.
func (s *fsStore) keyPath(key string) (string, error) {
	if key == "" || key == "." || key == ".." {
		return "", fmt.Errorf("invalid preference key %q", key)
	}
	if filepath.Base(key) != key {
		return "", fmt.Errorf("invalid preference key %q: must not be a path", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *fsStore) Get(ctx context.Context, key string) (string, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "path": path})

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("preference file not found")
			return "", fmt.Errorf("preference %s not found", key)
		}
		log.WithError(err).Error("failed to read preference file")
		return "", err
	}
	return string(data), nil
}

func (s *fsStore) Set(ctx context.Context, key, value string) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "path": path})

	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		log.WithError(err).Error("failed to write preference file")
		return err
	}
	return nil
}
