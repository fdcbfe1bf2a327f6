// Package varobj implements the variable-object exploration protocol: a
// per-rank tree of GDB variable objects, addressed by dotted name, grown
// by a depth/children/sibling-bounded asynchronous DFS.
package varobj

import (
	"strings"

	"github.com/mitchellh/pointerstructure"
)

// SplitDottedName tokenizes a varprint dotted name ("a.b.c") into its path
// segments, reusing pointerstructure's JSON-pointer parser for the actual
// tokenization (translating dots to pointer separators) rather than
// hand-rolling a splitter -- pointerstructure also rejects the empty
// segments a malformed name like "a..b" would otherwise silently produce.
func SplitDottedName(name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	ptr, err := pointerstructure.Parse("/" + strings.ReplaceAll(name, ".", "/"))
	if err != nil {
		return nil, err
	}
	return ptr.Parts, nil
}

// JoinDottedName is SplitDottedName's inverse, used to name a freshly
// created child variable object from its parent's name and the child's
// own field/index token.
func JoinDottedName(parent string, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
