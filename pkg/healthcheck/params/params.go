package params

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/re-tools/re-healthcheck/pkg/healthcheck/check"
)

// DefaultRoot is the directory parameter maps are discovered in.
const DefaultRoot = "parameter_maps"

var (
	ErrNotFound  = errors.New("parameter map not found")
	ErrAmbiguous = errors.New("multiple parameter maps found")
)

//nolint:gochecknoglobals
var extensions = []string{".json", ".yaml", ".yml"}

// IsFile reports whether selector names a parameter map file rather than a map name.
func IsFile(selector string) bool {
	return slices.Contains(extensions, strings.ToLower(path.Ext(selector)))
}

// Parse decodes a JSON or YAML parameter map.
func Parse(data []byte) (check.Params, error) {
	var p check.Params
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding parameter map: %w", err)
	}

	if p == nil {
		p = check.Params{}
	}

	return p, nil
}

// LoadFile reads a parameter map from the local filesystem.
func LoadFile(file string) (check.Params, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
		}

		return nil, fmt.Errorf("reading parameter map %s: %w", file, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return p, nil
}

// Loader discovers parameter maps laid out as <suite>/<check id>/<name>.<ext>.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = DefaultRoot
	}

	return &Loader{fsys: os.DirFS(dir)}
}

// NewLoaderFS returns a Loader reading from fsys.
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Names returns the parameter maps available for a check, sorted. A missing
// directory yields no names.
func (l *Loader) Names(suite string, checkID string) ([]string, error) {
	dir := path.Join(strings.ToLower(suite), strings.ToLower(checkID))

	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading parameter maps of %s: %w", checkID, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsFile(e.Name()) {
			continue
		}

		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}

	slices.Sort(names)

	return slices.Compact(names), nil
}

// Resolve returns the parameters for a check. An empty selector yields nil.
// A selector ending in a known extension is read as a file; otherwise it
// selects, case-insensitively, the single map whose name contains it.
// An exact name match wins over partial matches.
func (l *Loader) Resolve(selector string, suite string, checkID string) (check.Params, error) {
	if selector == "" {
		return nil, nil
	}

	if IsFile(selector) {
		return LoadFile(selector)
	}

	names, err := l.Names(suite, checkID)
	if err != nil {
		return nil, err
	}

	if len(names) == 0 {
		return nil, nil
	}

	want := strings.ToLower(selector)

	var matches []string
	for _, n := range names {
		if strings.ToLower(n) == want {
			matches = []string{n}

			break
		}

		if strings.Contains(strings.ToLower(n), want) {
			matches = append(matches, n)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w for %s, choose one of %v", ErrNotFound, checkID, names)
	case 1:
		return l.load(suite, checkID, matches[0])
	default:
		return nil, fmt.Errorf("%w for %s, choose one of %v", ErrAmbiguous, checkID, matches)
	}
}

func (l *Loader) load(suite string, checkID string, name string) (check.Params, error) {
	dir := path.Join(strings.ToLower(suite), strings.ToLower(checkID))

	for _, ext := range extensions {
		file := path.Join(dir, name+ext)

		data, err := fs.ReadFile(l.fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("reading parameter map %s: %w", file, err)
		}

		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		return p, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
