package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// maxRefDepth bounds the length of a single reference chain so a
// pathological template hierarchy fails cleanly instead of exhausting the
// call stack.
const maxRefDepth = 64

// ErrReferenceChainTooDeep is returned when a reference chain exceeds
// maxRefDepth links.
var ErrReferenceChainTooDeep = errors.New("reference chain too deep")

// Loader reads one referenced configuration unit by absolute path. It is
// injected so resolution can be tested against an in-memory document set,
// and so I/O policy (timeouts, caching) stays with the caller.
type Loader func(path string) (any, error)

// CircularReferenceError reports a reference chain that revisits a path
// already active in the same resolution call.
type CircularReferenceError struct {
	Path  string
	Chain []string
}

func (e *CircularReferenceError) Error() string {
	if len(e.Chain) > 0 {
		return fmt.Sprintf("circular reference detected: %s (chain: %s)", e.Path, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("circular reference detected: %s", e.Path)
}

// ReferenceNotFoundError reports a $ref whose target does not exist.
type ReferenceNotFoundError struct {
	Path string
	Err  error
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("shared reference not found: %s", e.Path)
}

func (e *ReferenceNotFoundError) Unwrap() error { return e.Err }

// InvalidReferenceError reports a malformed reference node: a non-string
// $ref, a non-mapping overrides value, or a path escaping the project root.
type InvalidReferenceError struct {
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return "invalid reference: " + e.Reason
}

// Resolve transforms node into a document with no remaining reference
// anywhere in its tree. Every mapping carrying a $ref key, at any depth, is
// replaced by the loaded target (itself resolved recursively) with the
// node's overrides mapping deep-merged on top. Overrides are literal data:
// a $ref inside an overrides block is merged in untouched, never resolved.
//
// $ref paths are slash-separated and resolved relative to projectRoot. A
// nil loader defaults to LoadDocument. Resolution either succeeds for the
// whole document or fails on the first error; there is no partial result.
func Resolve(node any, projectRoot string, loader Loader) (any, error) {
	if loader == nil {
		loader = LoadDocument
	}
	r := &resolver{
		root:    projectRoot,
		loader:  loader,
		visited: make(map[string]bool),
	}
	return r.resolveNode(node)
}

// resolver carries the per-call state: the visited set and chain for cycle
// detection. Entries are removed on return from each branch, so two sibling
// references to the same shared path are legal; only a chain that revisits
// a path through itself is rejected.
type resolver struct {
	root    string
	loader  Loader
	visited map[string]bool
	chain   []string
}

func (r *resolver) resolveNode(node any) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if IsReference(v) {
			return r.resolveReference(v)
		}
		out := make(map[string]any, len(v))
		for key, child := range v {
			resolved, err := r.resolveNode(child)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolved, err := r.resolveNode(child)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return v, nil
	}
}

func (r *resolver) resolveReference(ref map[string]any) (any, error) {
	refPath, ok := ref[RefKey].(string)
	if !ok {
		return nil, &InvalidReferenceError{
			Reason: fmt.Sprintf("%s must be a string, got %T", RefKey, ref[RefKey]),
		}
	}

	var overrides map[string]any
	if raw, present := ref[OverridesKey]; present && raw != nil {
		overrides, ok = raw.(map[string]any)
		if !ok {
			return nil, &InvalidReferenceError{
				Reason: fmt.Sprintf("%s for '%s' must be a mapping, got %T", OverridesKey, refPath, raw),
			}
		}
	}

	absPath, err := r.absTargetPath(refPath)
	if err != nil {
		return nil, err
	}

	if len(r.chain) >= maxRefDepth {
		return nil, fmt.Errorf("resolving '%s': %w (%d links)", absPath, ErrReferenceChainTooDeep, len(r.chain))
	}
	if r.visited[absPath] {
		return nil, &CircularReferenceError{
			Path:  absPath,
			Chain: append([]string(nil), r.chain...),
		}
	}

	r.visited[absPath] = true
	r.chain = append(r.chain, absPath)
	defer func() {
		delete(r.visited, absPath)
		r.chain = r.chain[:len(r.chain)-1]
	}()

	base, err := r.loader(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ReferenceNotFoundError{Path: absPath, Err: err}
		}
		return nil, fmt.Errorf("load reference '%s': %w", absPath, err)
	}

	// Resolve the loaded target first so multi-level chains are fully
	// inlined before overrides are layered on.
	resolved, err := r.resolveNode(base)
	if err != nil {
		return nil, err
	}

	if len(overrides) == 0 {
		return resolved, nil
	}
	baseMap, ok := resolved.(map[string]any)
	if !ok {
		// Non-mapping target with overrides: the override mapping
		// replaces it wholesale, mirroring scalar replacement.
		return overrides, nil
	}
	return DeepMerge(baseMap, overrides), nil
}

// absTargetPath joins a slash-separated $ref path onto the project root and
// rejects paths that climb back out of it.
func (r *resolver) absTargetPath(refPath string) (string, error) {
	abs := filepath.Join(r.root, filepath.FromSlash(refPath))
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &InvalidReferenceError{
			Reason: fmt.Sprintf("path '%s' escapes the project root", refPath),
		}
	}
	return abs, nil
}
