package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// IDAllocator hands out unique kebab-case ids. A repeated id gets a numeric
// suffix: "routing", "routing-2", "routing-3".
type IDAllocator struct {
	used    map[string]struct{}
	counter map[string]int
}

// NewIDAllocator creates an allocator with optional pre-reserved ids.
func NewIDAllocator(existing ...string) *IDAllocator {
	a := &IDAllocator{
		used:    make(map[string]struct{}, len(existing)+8),
		counter: make(map[string]int, len(existing)+8),
	}
	for _, id := range existing {
		if id = strings.TrimSpace(id); id != "" {
			a.used[id] = struct{}{}
		}
	}
	return a
}

// Allocate returns a unique id derived from id, falling back to fallback
// when id slugifies to nothing.
func (a *IDAllocator) Allocate(id, fallback string) string {
	base := Slugify(id)
	if base == "" {
		base = Slugify(fallback)
	}
	if base == "" {
		base = "feature"
	}
	if _, ok := a.used[base]; !ok {
		a.used[base] = struct{}{}
		a.counter[base] = 1
		return base
	}
	n := a.counter[base]
	if n < 1 {
		n = 1
	}
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, exists := a.used[candidate]; exists {
			continue
		}
		a.used[candidate] = struct{}{}
		a.counter[base] = n
		return candidate
	}
}

// Slugify lower-cases s and joins runs of letters and digits with single
// dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
