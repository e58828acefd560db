package level

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lynx32/forge/internal/entity"
)

// ReadSnapshotFile loads a snapshot saved by WriteSnapshotFile
func ReadSnapshotFile(path string, reg *entity.Registry) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return LoadSnapshot(data, reg)
}

// ReadTemplateFiles loads and merges template groups. Template ids must be
// unique across all files.
func ReadTemplateFiles(paths []string, reg *entity.Registry) (*TemplateGroup, error) {
	groups := make([]*TemplateGroup, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read templates: %w", err)
		}
		g, err := LoadTemplateGroup(data, reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		groups = append(groups, g)
	}
	return MergeTemplateGroups(groups...)
}

// WriteSnapshotFile saves s next to path and renames it into place, so a
// crash never leaves a truncated level behind.
func WriteSnapshotFile(path string, s *Snapshot) error {
	data, err := SaveSnapshot(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
