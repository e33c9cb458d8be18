// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"strconv"
	"strings"
)

// namer hands out unique HLSL identifiers. HLSL compares identifiers
// case-insensitively, so every name is tracked in lowercase.
type namer struct {
	usedNames map[string]struct{}

	// counter is shared by all bases so suffixes stay unique module-wide.
	counter uint32
}

func newNamer() *namer {
	return &namer{
		usedNames: make(map[string]struct{}),
	}
}

// call returns a unique identifier derived from base. Characters that are
// not valid in an identifier become underscores, reserved words are
// escaped, and a numeric suffix is added on collision.
func (n *namer) call(base string) string {
	name := Escape(sanitizeIdentifier(base))
	if n.claim(name) {
		return name
	}
	for {
		n.counter++
		candidate := name + "_" + strconv.FormatUint(uint64(n.counter), 10)
		if n.claim(candidate) {
			return candidate
		}
	}
}

// claim marks name as used and reports whether it was free.
func (n *namer) claim(name string) bool {
	lower := strings.ToLower(name)
	if _, used := n.usedNames[lower]; used {
		return false
	}
	n.usedNames[lower] = struct{}{}
	return true
}

// sanitizeIdentifier maps name onto the ASCII identifier alphabet.
// An empty result is left empty for Escape to replace.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 1)
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
