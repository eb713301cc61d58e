// Package snapshot keeps copies of release values taken before each update,
// so an edit can be undone locally.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cameronsjo/helmdeck/internal/fileutil"
	"github.com/cameronsjo/helmdeck/internal/values"
)

const (
	// SnapshotPrefix is the prefix for snapshot file names.
	SnapshotPrefix = "snapshot-"
	// DateFormatPrecise includes nanoseconds to prevent same-second collisions.
	DateFormatPrecise = "20060102-150405.000000000"
	// MaxSnapshots is the number of snapshots retained per release.
	MaxSnapshots = 20

	snapshotExt = ".json"
)

// Info holds metadata about a snapshot.
type Info struct {
	Name    string
	Path    string
	Created time.Time
	// Keys is the number of top-level keys in the saved document.
	Keys int
}

// Store saves snapshots under a state directory, one subdirectory per release.
type Store struct {
	dir string
	now func() time.Time
}

// New returns a store rooted at stateDir/snapshots.
func New(stateDir string) *Store {
	return &Store{
		dir: filepath.Join(stateDir, "snapshots"),
		now: time.Now,
	}
}

// releaseDir returns the directory for release id ("namespace/name").
func (s *Store) releaseDir(id string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(id, "/", "_"))
}

// Save writes doc as a new snapshot of release id and prunes old ones.
// Returns the snapshot name.
func (s *Store) Save(id string, doc *values.Mapping) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	name := SnapshotPrefix + s.now().UTC().Format(DateFormatPrecise)
	path := filepath.Join(s.releaseDir(id), name+snapshotExt)
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0600); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if err := s.Cleanup(id); err != nil {
		return name, fmt.Errorf("cleanup snapshots: %w", err)
	}
	return name, nil
}

// List returns the snapshots of release id sorted by date (newest first).
func (s *Store) List(id string) ([]Info, error) {
	dir := s.releaseDir(id)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		name, ok := snapshotName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}

		created, err := time.Parse(DateFormatPrecise, strings.TrimPrefix(name, SnapshotPrefix))
		if err != nil {
			continue
		}

		info := Info{
			Name:    name,
			Path:    filepath.Join(dir, entry.Name()),
			Created: created,
		}
		if doc, err := readSnapshot(info.Path); err == nil {
			info.Keys = doc.Len()
		}
		snapshots = append(snapshots, info)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})
	return snapshots, nil
}

// Load reads snapshot name of release id. "latest" selects the newest.
func (s *Store) Load(id, name string) (*values.Mapping, error) {
	if name == "latest" {
		list, err := s.List(id)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("no snapshots for %s", id)
		}
		name = list[0].Name
	}

	if !strings.HasPrefix(name, SnapshotPrefix) || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid snapshot name: %s", name)
	}

	path := filepath.Join(s.releaseDir(id), name+snapshotExt)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot not found: %s", name)
	}
	return readSnapshot(path)
}

// Cleanup removes all but the newest MaxSnapshots snapshots of release id.
func (s *Store) Cleanup(id string) error {
	list, err := s.List(id)
	if err != nil {
		return err
	}
	for _, info := range list[min(len(list), MaxSnapshots):] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot %s: %w", info.Name, err)
		}
	}
	return nil
}

func snapshotName(file string) (string, bool) {
	if !strings.HasPrefix(file, SnapshotPrefix) || !strings.HasSuffix(file, snapshotExt) {
		return "", false
	}
	return strings.TrimSuffix(file, snapshotExt), true
}

func readSnapshot(path string) (*values.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	doc := values.NewMapping()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}
