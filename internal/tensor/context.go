package tensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Device represents the kind of compute target a tensor lives on.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// Context identifies one compute target: a device kind plus an ordinal.
//
// A parameter keeps one replica of its storage per Context, so training can
// mirror the same logical weights over several targets.
type Context struct {
	Device Device
	ID     int
}

// CPUContext returns the context for the CPU target with the given ordinal.
func CPUContext(id int) Context {
	return Context{Device: CPU, ID: id}
}

// String formats the context as device(id), e.g. "cpu(0)".
func (c Context) String() string {
	return fmt.Sprintf("%s(%d)", c.Device, c.ID)
}

// ParseContext parses strings such as "cpu(1)" or "cpu".
func ParseContext(s string) (Context, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	name, id := s, 0
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Context{}, fmt.Errorf("invalid context %q", s)
		}
		n, err := strconv.Atoi(s[open+1 : len(s)-1])
		if err != nil || n < 0 {
			return Context{}, fmt.Errorf("invalid context ordinal in %q", s)
		}
		name, id = s[:open], n
	}
	switch name {
	case "cpu":
		return CPUContext(id), nil
	default:
		return Context{}, fmt.Errorf("unsupported device %q", name)
	}
}

// ErrDuplicateContext reports a context listed more than once.
var ErrDuplicateContext = errors.New("duplicate context")

// ParseContexts parses a list of context strings. Each context may appear
// only once.
func ParseContexts(specs []string) ([]Context, error) {
	ctxs := make([]Context, 0, len(specs))
	for _, s := range specs {
		ctx, err := ParseContext(s)
		if err != nil {
			return nil, err
		}
		ctxs = append(ctxs, ctx)
	}
	if err := CheckContexts(ctxs); err != nil {
		return nil, err
	}
	return ctxs, nil
}

// CheckContexts fails with ErrDuplicateContext if a context repeats.
func CheckContexts(ctxs []Context) error {
	seen := make(map[Context]struct{}, len(ctxs))
	for _, ctx := range ctxs {
		if _, ok := seen[ctx]; ok {
			return fmt.Errorf("%s: %w", ctx, ErrDuplicateContext)
		}
		seen[ctx] = struct{}{}
	}
	return nil
}
