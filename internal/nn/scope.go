package nn

import "strconv"

// Scope hands out unique prefixes to the blocks created under it.
//
// Each alias has its own counter, so the first two dense blocks under a scope
// with prefix "net_" are named "net_dense0_" and "net_dense1_". Every block
// owns a Scope for its children, which keeps fully-qualified parameter names
// unique within one tree without any process-wide name manager.
type Scope struct {
	prefix   string
	counters map[string]int
}

// NewScope returns a root scope. prefix may be empty.
func NewScope(prefix string) *Scope {
	return &Scope{prefix: prefix, counters: make(map[string]int)}
}

// Prefix returns the scope prefix.
func (s *Scope) Prefix() string {
	return s.prefix
}

// Next returns the prefix for the next block with the given alias.
func (s *Scope) Next(alias string) string {
	n := s.counters[alias]
	s.counters[alias] = n + 1
	return s.prefix + alias + strconv.Itoa(n) + "_"
}
