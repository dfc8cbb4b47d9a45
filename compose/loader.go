// Copyright 2026 The Cocoon Authors
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Errors returned by profile resolution. Configuration errors are not
// transient; the loader never retries.
var (
	// ErrProfileNotFound means a profile name or extends parent could not
	// be resolved in any search location.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrExtendsCycle means an extends chain revisits a profile.
	ErrExtendsCycle = errors.New("circular extends chain")
)

// extensions is the order in which file extensions are tried when resolving
// a bare profile name.
var extensions = []string{".yaml", ".yml", ".json"}

// Loader loads profile files and resolves extends chains.
type Loader struct {
	searchDirs []string
	logger     *slog.Logger
}

// NewLoader creates a loader. searchDirs are extra directories consulted
// when resolving bare profile names and extends references, after the
// directory of the file currently being loaded.
func NewLoader(searchDirs ...string) *Loader {
	return &Loader{searchDirs: searchDirs}
}

// SetLogger enables verbose logging during profile loading: which files are
// checked, which parents are resolved, and how chains merge.
func (l *Loader) SetLogger(logger *slog.Logger) {
	l.logger = logger
}

func (l *Loader) log(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

// Load reads the profile file at path and resolves its extends chain into a
// single profile. The result never carries an extends field.
func (l *Loader) Load(path string) (*Profile, error) {
	return l.load(path, make(map[string]bool))
}

// LoadByName resolves a profile operand (a literal file path or a bare name
// searched in the configured directories) and loads it.
func (l *Loader) LoadByName(name string) (*Profile, error) {
	path, err := l.ResolvePath(name)
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

// ResolvePath resolves a profile operand to a file path. A literal path
// that exists wins; otherwise each search directory is tried with the
// literal name first, then the known extensions in order.
func (l *Loader) ResolvePath(name string) (string, error) {
	if fileExists(name) {
		return name, nil
	}
	for _, dir := range l.searchDirs {
		if path, ok := probeDir(dir, name); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrProfileNotFound, name, strings.Join(l.searchDirs, ", "))
}

func (l *Loader) load(path string, visited map[string]bool) (*Profile, error) {
	canonical := canonicalPath(path)
	if visited[canonical] {
		return nil, fmt.Errorf("%w: %s", ErrExtendsCycle, path)
	}
	visited[canonical] = true

	l.log("loading profile", "path", path)

	node, err := readProfileNode(path)
	if err != nil {
		return nil, err
	}

	profile := &Profile{}
	if err := node.Decode(profile); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(profile.Extends) == 0 {
		return profile, nil
	}

	// Resolve each parent, oldest ancestor first, then overlay the child
	// on top of the merged parent chain. Inheritance precedence falls out
	// of ordinary composition; there is no special-cased override logic.
	parents := make([]*Profile, 0, len(profile.Extends))
	for _, parentName := range profile.Extends {
		parentPath, err := l.resolveExtends(parentName, filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("%s: extends %q: %w", path, parentName, err)
		}
		l.log("resolving parent profile", "child", path, "parent", parentPath)
		parent, err := l.load(parentPath, visited)
		if err != nil {
			return nil, err
		}
		parents = append(parents, parent)
	}

	child := profile.Clone()
	child.Extends = nil

	resolved := Compose([]*Profile{Compose(parents), child})
	resolved.Description = child.Description
	return resolved, nil
}

// LoadMapping reads a profile file into a generic mapping for schema
// validation, with the same JSONC handling and profiles unwrapping as Load.
func LoadMapping(path string) (map[string]any, error) {
	node, err := readProfileNode(path)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]any)
	if err := node.Decode(&mapping); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mapping, nil
}

// resolveExtends locates a parent profile: the directory containing the
// current file is searched first, then each extra search directory, trying
// the literal name before appending extensions.
func (l *Loader) resolveExtends(name, currentDir string) (string, error) {
	for _, dir := range append([]string{currentDir}, l.searchDirs...) {
		if path, ok := probeDir(dir, name); ok {
			return path, nil
		}
	}
	return "", ErrProfileNotFound
}

func probeDir(dir, name string) (string, bool) {
	candidates := make([]string, 0, len(extensions)+1)
	candidates = append(candidates, filepath.Join(dir, name))
	for _, ext := range extensions {
		candidates = append(candidates, filepath.Join(dir, name+ext))
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// canonicalPath normalizes a path for cycle detection so the same file
// reached through different spellings is recognized as a revisit.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return filepath.Clean(abs)
}

// readProfileNode reads a profile file into a YAML node, stripping JSONC
// comments and trailing commas for .json files and unwrapping a
// single-entry "profiles" mapping. YAML is a superset of JSON, so both
// formats flow through the same decode path.
func readProfileNode(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data = jsonc.ToJSON(data)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	node := documentContent(&root)
	if node == nil {
		// Empty file: an empty profile.
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	return unwrapProfiles(node), nil
}

func documentContent(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		return root.Content[0]
	}
	if root.Kind == 0 {
		return nil
	}
	return root
}

// unwrapProfiles returns the inner profile when the document is a mapping
// whose "profiles" key holds exactly one named profile. This is a
// convenience for files that nest one named profile.
func unwrapProfiles(node *yaml.Node) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return node
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "profiles" {
			continue
		}
		inner := node.Content[i+1]
		if inner.Kind == yaml.MappingNode && len(inner.Content) == 2 {
			return inner.Content[1]
		}
		return node
	}
	return node
}
