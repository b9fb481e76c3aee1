package cache

import (
	"fmt"
	"strings"
)

// Key is a hierarchical resource key: a root tag followed by discriminating
// parts, joined with "/". Keys form a prefix tree on part boundaries.
type Key string

const sep = "/"

// NewKey builds a key from a root tag and its parts. Parts are formatted with %v.
func NewKey(root string, parts ...interface{}) Key {
	var b strings.Builder
	b.WriteString(root)
	for _, p := range parts {
		b.WriteString(sep)
		b.WriteString(strings.ReplaceAll(fmt.Sprint(p), sep, "_"))
	}
	return Key(b.String())
}

// Root returns the key's root tag
func (k Key) Root() string {
	root, _, _ := strings.Cut(string(k), sep)
	return root
}

// Parts returns the key's segments, root first
func (k Key) Parts() []string {
	return strings.Split(string(k), sep)
}

// HasPrefix reports whether k equals p or sits below it. "schedule/2025-06-1"
// is not a prefix of "schedule/2025-06-10".
func (k Key) HasPrefix(p Key) bool {
	if p == "" {
		return true
	}
	return k == p || strings.HasPrefix(string(k), string(p)+sep)
}

// Child extends k with more parts
func (k Key) Child(parts ...interface{}) Key {
	return NewKey(string(k), parts...)
}

func (k Key) String() string { return string(k) }
