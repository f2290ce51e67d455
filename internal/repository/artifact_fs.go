package repository

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"StockPulse/internal/domain/models"
)

const (
	activeFile   = "active.gob"
	backupPrefix = "backup-"
)

// FSArtifactStore keeps one active model artifact per region on disk plus a
// bounded set of backup snapshots used to roll back failed retrains. Versions
// are timestamp strings, so lexicographic order is chronological order.
type FSArtifactStore struct {
	dir  string
	keep int
}

func NewFSArtifactStore(dir string, keep int) (*FSArtifactStore, error) {
	if keep < 1 {
		keep = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSArtifactStore{dir: dir, keep: keep}, nil
}

func (s *FSArtifactStore) regionDir(region models.MarketRegion) string {
	return filepath.Join(s.dir, region.String())
}

func (s *FSArtifactStore) SaveActive(_ context.Context, artifact *models.ModelArtifact) error {
	dir := s.regionDir(artifact.Region)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(artifact); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	return writeAtomic(filepath.Join(dir, activeFile), buf.Bytes())
}

func (s *FSArtifactStore) Active(_ context.Context, region models.MarketRegion) (*models.ModelArtifact, error) {
	raw, err := os.ReadFile(filepath.Join(s.regionDir(region), activeFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrNoActiveModel
		}
		return nil, err
	}
	var artifact models.ModelArtifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &artifact, nil
}

// Backup snapshots the active artifact bytes to backup-<version>.gob and
// prunes snapshots beyond the retention limit. Returns the snapshot name.
func (s *FSArtifactStore) Backup(ctx context.Context, region models.MarketRegion) (string, error) {
	artifact, err := s.Active(ctx, region)
	if err != nil {
		return "", err
	}
	dir := s.regionDir(region)
	raw, err := os.ReadFile(filepath.Join(dir, activeFile))
	if err != nil {
		return "", err
	}
	name := backupPrefix + artifact.Version + ".gob"
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return "", err
	}
	if err := s.prune(ctx, region); err != nil {
		return "", err
	}
	return name, nil
}

// RestoreLatest copies the newest backup snapshot back over the active
// artifact. Used after a retrain fails mid-flight.
func (s *FSArtifactStore) RestoreLatest(ctx context.Context, region models.MarketRegion) error {
	backups, err := s.Backups(ctx, region)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups for region %s", region)
	}
	dir := s.regionDir(region)
	raw, err := os.ReadFile(filepath.Join(dir, backups[len(backups)-1]))
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, activeFile), raw)
}

// Backups lists snapshot file names for a region, oldest first.
func (s *FSArtifactStore) Backups(_ context.Context, region models.MarketRegion) ([]string, error) {
	entries, err := os.ReadDir(s.regionDir(region))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *FSArtifactStore) prune(ctx context.Context, region models.MarketRegion) error {
	names, err := s.Backups(ctx, region)
	if err != nil {
		return err
	}
	dir := s.regionDir(region)
	for len(names) > s.keep {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return err
		}
		names = names[1:]
	}
	return nil
}

func writeAtomic(path string, raw []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
