package store

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type localStore struct {
	logger     zerolog.Logger
	basePath   string
	cleanPaths map[string]struct{}
}

func NewLocalStore(logger zerolog.Logger, basePath string) (*localStore, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &localStore{
		logger:     logger,
		basePath:   basePath,
		cleanPaths: make(map[string]struct{}),
	}, nil
}

func (l *localStore) Put(ctx context.Context, key string, r io.Reader) (Resource, error) {
	p := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
		return nil, err
	}
	logger := l.logger.With().Str("path", p).Logger()
	logger.Debug().Msgf("creating file")
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "error writing %s", p)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	logger.Debug().Msgf("wrote file")
	return &localResource{path: p, store: l}, nil
}

func (l *localStore) Cleanup(ctx context.Context) error {
	for p := range l.cleanPaths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		delete(l.cleanPaths, p)
	}
	return nil
}

type localResource struct {
	path  string
	store *localStore
}

func (l *localResource) Location() string {
	return l.path
}

func (l *localResource) Reader(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(l.path)
}

func (l *localResource) MarkForCleanup(ctx context.Context) error {
	l.store.logger.Debug().Msgf("marking %s for removal", l.path)
	l.store.cleanPaths[l.path] = struct{}{}
	return nil
}
