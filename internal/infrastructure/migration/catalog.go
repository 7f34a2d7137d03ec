package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	upSuffix    = ".up.sql"
	downSuffix  = ".down.sql"
	versionSize = 6
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned up/down pair
type Migration struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// MigrationStatus is a Migration with its state in the database
type MigrationStatus struct {
	Migration
	Applied bool
	Dirty   bool
}

// List reads the migrations in fsys ordered by version. Files that do not
// follow the NNNNNN_name.up.sql naming are ignored.
func List(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[uint]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := fileNamePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		v, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", e.Name(), err)
		}
		version := uint(v)
		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: match[2]}
			byVersion[version] = mig
		} else if mig.Name != match[2] {
			return nil, fmt.Errorf("migration %d has two names: %s and %s", version, mig.Name, match[2])
		}
		if match[3] == "up" {
			mig.HasUp = true
		} else {
			mig.HasDown = true
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Check reports migrations missing their up or down file
func Check(fsys fs.FS) error {
	all, err := List(fsys)
	if err != nil {
		return err
	}
	var missing []string
	for _, m := range all {
		if !m.HasUp {
			missing = append(missing, fmt.Sprintf("%0*d_%s%s", versionSize, m.Version, m.Name, upSuffix))
		}
		if !m.HasDown {
			missing = append(missing, fmt.Sprintf("%0*d_%s%s", versionSize, m.Version, m.Name, downSuffix))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete migrations, missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Create writes an empty up/down pair in dir numbered after the highest existing version
func Create(dir, name string) (Migration, []string, error) {
	name = sanitizeName(name)
	if name == "" {
		return Migration{}, nil, fmt.Errorf("migration name is required")
	}

	existing, err := List(os.DirFS(dir))
	if err != nil {
		return Migration{}, nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	mig := Migration{Version: next, Name: name, HasUp: true, HasDown: true}
	base := fmt.Sprintf("%0*d_%s", versionSize, next, name)
	paths := []string{
		filepath.Join(dir, base+upSuffix),
		filepath.Join(dir, base+downSuffix),
	}
	for _, p := range paths {
		header := fmt.Sprintf("-- %s\n\n", strings.ReplaceAll(name, "_", " "))
		if err := os.WriteFile(p, []byte(header), 0o644); err != nil {
			return Migration{}, nil, fmt.Errorf("failed to write %s: %w", p, err)
		}
	}
	return mig, paths, nil
}

var nonNameChars = regexp.MustCompile(`[^a-z0-9_]+`)

// sanitizeName lowercases name and turns separators into single underscores
func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	name = nonNameChars.ReplaceAllString(name, "")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}
