package blueprint

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed blueprints
var bundled embed.FS

// Registry resolves template ids to validated documents. Sources are searched
// in order, so an earlier source overrides a bundled blueprint with the same id.
// Loaded documents are cached per id and shared read-only between callers.
type Registry struct {
	sources []fs.FS
	cache   sync.Map // map[string]*Document
}

// NewRegistry creates a registry over the given sources.
func NewRegistry(sources ...fs.FS) *Registry {
	return &Registry{sources: sources}
}

// BundledFS returns the blueprints compiled into the binary.
func BundledFS() fs.FS {
	sub, err := fs.Sub(bundled, "blueprints")
	if err != nil {
		panic(fmt.Sprintf("bundled blueprints: %v", err))
	}
	return sub
}

// NewDefaultRegistry returns a registry over the bundled blueprints, with an
// optional directory whose files take precedence.
func NewDefaultRegistry(dir string) *Registry {
	if dir == "" {
		return NewRegistry(BundledFS())
	}
	return NewRegistry(os.DirFS(dir), BundledFS())
}

var defaultRegistry = NewRegistry(BundledFS())

// Load loads a bundled blueprint by template id.
func Load(templateID string) (*Document, error) {
	return defaultRegistry.Load(templateID)
}

// ListIDs returns the ids of all bundled blueprints.
func ListIDs() ([]string, error) {
	return defaultRegistry.ListIDs()
}

// Load returns the validated document for a template id.
func (r *Registry) Load(templateID string) (*Document, error) {
	if cached, ok := r.cache.Load(templateID); ok {
		return cached.(*Document), nil
	}

	data, format, err := r.read(templateID)
	if err != nil {
		return nil, &LoadError{TemplateID: templateID, Err: err}
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, &LoadError{TemplateID: templateID, Err: err}
	}

	actual, _ := r.cache.LoadOrStore(templateID, doc)
	return actual.(*Document), nil
}

// ListIDs returns the sorted ids of every blueprint visible to the registry.
func (r *Registry) ListIDs() ([]string, error) {
	seen := make(map[string]bool)
	for _, src := range r.sources {
		entries, err := fs.ReadDir(src, ".")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list blueprints: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if _, ok := FormatForPath(e.Name()); !ok {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Summaries loads every blueprint and returns their listing views.
func (r *Registry) Summaries() ([]Summary, error) {
	ids, err := r.ListIDs()
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc.Summarize())
	}
	return out, nil
}

// read finds the first source holding templateID in a supported format.
func (r *Registry) read(templateID string) ([]byte, Format, error) {
	if templateID == "" || strings.ContainsAny(templateID, `/\`) || templateID == "." || templateID == ".." {
		return nil, "", fmt.Errorf("invalid template id: %w", ErrNotFound)
	}
	for _, src := range r.sources {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			name := templateID + ext
			data, err := fs.ReadFile(src, name)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return nil, "", fmt.Errorf("read %s: %w", name, err)
			}
			format, _ := FormatForPath(name)
			return data, format, nil
		}
	}
	return nil, "", ErrNotFound
}
