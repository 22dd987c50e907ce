package progression

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// dataVersion is bumped when the on-disk schema changes.
	dataVersion = 1

	dataFileName = "players.json"
)

// dataFile is the on-disk envelope around the profile map.
type dataFile struct {
	Version     int                 `json:"version"`
	Players     map[uint64]*Profile `json:"players"`
	LastUpdated time.Time           `json:"lastUpdated"`
}

// FileStore persists the whole profile map as one JSON document, written with
// a temp-file-then-rename so a crash mid-save never corrupts the data.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on
// the first Save if it does not exist.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the full path to the data file.
func (fs *FileStore) Path() string {
	return filepath.Join(fs.dir, dataFileName)
}

// Load reads all profiles from disk. A missing file yields an empty map with
// no error; an unreadable or malformed file returns the parse error so the
// caller can log it and start empty.
func (fs *FileStore) Load() (map[uint64]*Profile, error) {
	data, err := os.ReadFile(fs.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[uint64]*Profile), nil
		}
		return make(map[uint64]*Profile), fmt.Errorf("reading player data: %w", err)
	}

	var df dataFile
	if err := json.Unmarshal(data, &df); err != nil {
		return make(map[uint64]*Profile), fmt.Errorf("parsing player data: %w", err)
	}
	if df.Players == nil {
		df.Players = make(map[uint64]*Profile)
	}
	for _, p := range df.Players {
		p.initMaps()
	}
	return df.Players, nil
}

// Save writes the full profile map to disk atomically.
func (fs *FileStore) Save(players map[uint64]*Profile) error {
	if err := os.MkdirAll(fs.dir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	df := dataFile{
		Version:     dataVersion,
		Players:     players,
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling player data: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(fs.dir, ".players-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.Path()); err != nil {
		return fmt.Errorf("renaming data file: %w", err)
	}
	committed = true
	return nil
}
