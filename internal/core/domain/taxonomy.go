package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/finagent/finagent/internal/apperrors"
)

// Category is a node in the two-level taxonomy. Keys are dotted, e.g.
// "FOOD.GROCERIES"; top-level keys have no dot and no parent.
type Category struct {
	CategoryID  string   `json:"categoryID"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ParentKey   *string  `json:"parentKey,omitempty"`
	Rules       []string `json:"rules,omitempty"`
}

// Taxonomy is an immutable in-memory category tree. It has no knowledge of
// the store; construction goes through NewTaxonomy and a loader that reads
// rows elsewhere.
type Taxonomy struct {
	byKey  map[string]Category
	keys   []string // sorted
	digest string
}

// NewTaxonomy builds a taxonomy from a sequence of nodes, sorting by key for
// stability.
func NewTaxonomy(nodes []Category) *Taxonomy {
	byKey := make(map[string]Category, len(nodes))
	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := byKey[n.Key]; ok {
			continue
		}
		byKey[n.Key] = n
		keys = append(keys, n.Key)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}

	return &Taxonomy{
		byKey:  byKey,
		keys:   keys,
		digest: hex.EncodeToString(h.Sum(nil)),
	}
}

// IsValidKey reports whether key names a node in the taxonomy.
func (t *Taxonomy) IsValidKey(key string) bool {
	_, ok := t.byKey[key]
	return ok
}

// Get returns the node for key or apperrors.ErrNotFound.
func (t *Taxonomy) Get(key string) (Category, error) {
	n, ok := t.byKey[key]
	if !ok {
		return Category{}, fmt.Errorf("taxonomy: key %q: %w", key, apperrors.ErrNotFound)
	}
	return n, nil
}

// Children returns the child nodes of parentKey in deterministic key order.
func (t *Taxonomy) Children(parentKey string) []Category {
	var out []Category
	for _, k := range t.keys {
		n := t.byKey[k]
		if n.ParentKey != nil && *n.ParentKey == parentKey {
			out = append(out, n)
		}
	}
	return out
}

// Parent returns the parent node of key, or apperrors.ErrNotFound when key is
// unknown or a root.
func (t *Taxonomy) Parent(key string) (Category, error) {
	n, ok := t.byKey[key]
	if !ok || n.ParentKey == nil {
		return Category{}, fmt.Errorf("taxonomy: parent of %q: %w", key, apperrors.ErrNotFound)
	}
	return t.Get(*n.ParentKey)
}

// PathString renders the human names from root to key joined by sep, e.g.
// "Food > Groceries".
func (t *Taxonomy) PathString(key, sep string) (string, error) {
	n, err := t.Get(key)
	if err != nil {
		return "", err
	}
	names := []string{n.Name}
	for n.ParentKey != nil {
		p, err := t.Get(*n.ParentKey)
		if err != nil {
			return "", err
		}
		names = append([]string{p.Name}, names...)
		n = p
	}
	return strings.Join(names, sep), nil
}

// Keys returns all node keys in sorted order.
func (t *Taxonomy) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of nodes.
func (t *Taxonomy) Len() int { return len(t.keys) }

// Digest is a stable fingerprint of the taxonomy key set, used to scope LLM
// cache entries so a taxonomy change invalidates prior categorizations.
func (t *Taxonomy) Digest() string { return t.digest }

// PromptNode is the prompt-facing rendering of a category node.
type PromptNode struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rules       []string     `json:"rules,omitempty"`
	Children    []PromptNode `json:"children,omitempty"`
}

// RenderForPrompt produces a structured rendering of the taxonomy suitable
// for insertion into the categorization prompt. When subset is non-empty only
// the named keys (and their children) are rendered. Rules are included only
// when includeRules is set.
func (t *Taxonomy) RenderForPrompt(subset []string, includeRules bool) []PromptNode {
	wanted := map[string]bool{}
	for _, k := range subset {
		wanted[k] = true
	}

	var roots []PromptNode
	for _, k := range t.keys {
		n := t.byKey[k]
		if n.ParentKey != nil {
			continue
		}
		if len(wanted) > 0 && !wanted[n.Key] {
			continue
		}
		root := t.promptNode(n, includeRules)
		for _, child := range t.Children(n.Key) {
			root.Children = append(root.Children, t.promptNode(child, includeRules))
		}
		roots = append(roots, root)
	}
	return roots
}

func (t *Taxonomy) promptNode(n Category, includeRules bool) PromptNode {
	pn := PromptNode{Key: n.Key, Name: n.Name, Description: n.Description}
	if includeRules {
		pn.Rules = n.Rules
	}
	return pn
}
