// Package catalog resolves category display names and shapes product summaries.
package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	// PathSeparator joins ancestor names within one category membership.
	PathSeparator = " > "
	// MembershipSeparator joins the flattened memberships of one product.
	MembershipSeparator = " | "
)

// DefaultRootIDs are the synthetic tree roots that never appear in display names.
var DefaultRootIDs = []int64{1, 2}

// Node is one catalog category.
type Node struct {
	ID   int64
	Name string
	// Path is the slash separated ancestor id chain ending with the node itself, e.g. 1/2/14/27.
	Path string
}

// MissingCategoryError reports a referenced category id that is absent from the tree.
type MissingCategoryError struct {
	ID   int64
	Path string
}

func (e *MissingCategoryError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("category %d not found", e.ID)
	}
	return fmt.Sprintf("category %d referenced by path %s not found", e.ID, e.Path)
}

// TreeOption customises a Tree.
type TreeOption func(*Tree)

// WithRootIDs overrides the synthetic root ids.
func WithRootIDs(ids ...int64) TreeOption {
	return func(t *Tree) { t.roots = ids }
}

// WithStrict makes resolution fail on missing categories instead of skipping them.
func WithStrict() TreeOption {
	return func(t *Tree) { t.strict = true }
}

// WithMissingHandler is called for every skipped category id in non-strict mode.
func WithMissingHandler(fn func(*MissingCategoryError)) TreeOption {
	return func(t *Tree) { t.onMissing = fn }
}

// Tree is a read-only id → category map built once per export run.
type Tree struct {
	nodes     map[int64]Node
	roots     []int64
	strict    bool
	onMissing func(*MissingCategoryError)
}

// NewTree indexes nodes by id.
func NewTree(nodes []Node, opts ...TreeOption) *Tree {
	t := &Tree{
		nodes: make(map[int64]Node, len(nodes)),
		roots: DefaultRootIDs,
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of indexed categories.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the category with id.
func (t *Tree) Node(id int64) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Resolve turns an id path into the " > " joined names of its non-root ancestors.
// The trailing segment is the category itself and is dropped. Chains no longer than
// the root set resolve to "".
func (t *Tree) Resolve(path string) (string, error) {
	segments := strings.Split(path, "/")
	ancestors := segments[:len(segments)-1]
	if len(ancestors) <= len(t.roots) {
		return "", nil
	}
	names := make([]string, 0, len(ancestors))
	for _, seg := range ancestors {
		id, err := strconv.ParseInt(strings.TrimSpace(seg), 10, 64)
		if err != nil {
			return "", fmt.Errorf("parse category path %q: %w", path, err)
		}
		if slices.Contains(t.roots, id) {
			continue
		}
		node, ok := t.nodes[id]
		if !ok {
			if err := t.missing(&MissingCategoryError{ID: id, Path: path}); err != nil {
				return "", err
			}
			continue
		}
		names = append(names, node.Name)
	}
	return strings.Join(names, PathSeparator), nil
}

// Flatten resolves every membership of a product and joins the non-empty results with " | ".
func (t *Tree) Flatten(categoryIDs []int64) (string, error) {
	parts := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		node, ok := t.nodes[id]
		if !ok {
			if err := t.missing(&MissingCategoryError{ID: id}); err != nil {
				return "", err
			}
			continue
		}
		name, err := t.Resolve(node.Path)
		if err != nil {
			return "", err
		}
		if name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, MembershipSeparator), nil
}

func (t *Tree) missing(err *MissingCategoryError) error {
	if t.strict {
		return err
	}
	if t.onMissing != nil {
		t.onMissing(err)
	}
	return nil
}
