package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"kitchen-board/domain"
)

// QueueFile persists the mutation queue as a JSON snapshot on local disk,
// one file per store. Saves go through a temp file and rename so a crash
// mid-write leaves the previous snapshot intact.
type QueueFile struct {
	path string
}

// NewQueueFile creates the data directory if needed.
func NewQueueFile(dir, storeID string) (*QueueFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("queue dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &QueueFile{path: filepath.Join(dir, "mutations-"+storeID+".json")}, nil
}

func (f *QueueFile) Load(ctx context.Context) ([]domain.QueuedMutation, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var muts []domain.QueuedMutation
	if err := json.Unmarshal(data, &muts); err != nil {
		// A corrupt snapshot is unrecoverable; start over rather than
		// wedging the console on boot.
		return nil, nil
	}
	return muts, nil
}

func (f *QueueFile) Save(ctx context.Context, muts []domain.QueuedMutation) error {
	data, err := json.Marshal(muts)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return err
	}
	return syncDir(filepath.Dir(f.path))
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

func syncDir(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	defer dir.Close()
	return dir.Sync()
}
