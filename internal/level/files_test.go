package level

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lynx32/forge/internal/fixed"
)

func TestSnapshotFileRoundTrip(t *testing.T) {
	reg, p, _ := testRegistry(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "level.json")

	s := NewSnapshot()
	s.Tick = 42
	d, _ := s.CreateEntity("a").AddData(p)
	d.(*point).X = fixed.FromRaw(-1)

	if err := WriteSnapshotFile(path, s); err != nil {
		t.Fatal(err)
	}
	// Overwrite in place
	s.Tick = 43
	if err := WriteSnapshotFile(path, s); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSnapshotFile(path, reg)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tick != 43 {
		t.Errorf("Expected tick 43, got %d", got.Tick)
	}
	cur, _ := got.Entity(1).Current(p)
	if cur.(*point).X.Raw() != -1 {
		t.Errorf("Expected raw -1, got %d", cur.(*point).X.Raw())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestReadSnapshotFileMissing(t *testing.T) {
	reg, _, _ := testRegistry(t)
	if _, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "nope.json"), reg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}
}

func TestReadTemplateFiles(t *testing.T) {
	reg, p, g := testRegistry(t)
	dir := t.TempDir()

	write := func(name string, group *TemplateGroup) string {
		data, err := SaveTemplateGroup(group)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	a := NewTemplateGroup()
	a.CreateTemplate("rock").AddDefaultData(p)
	b := NewTemplateGroupFrom(10)
	b.CreateTemplate("flag").AddDefaultData(g)

	merged, err := ReadTemplateFiles([]string{write("a.json", a), write("b.json", b)}, reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Templates) != 2 || merged.Template(10) == nil {
		t.Errorf("Expected templates 0 and 10, got %d templates", len(merged.Templates))
	}

	_, err = ReadTemplateFiles([]string{write("a.json", a), write("c.json", a)}, reg)
	var dup *DuplicateTemplateError
	if !errors.As(err, &dup) || dup.ID != 0 {
		t.Errorf("Expected duplicate template 0, got %v", err)
	}
}
