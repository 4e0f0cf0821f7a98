// Package refs implements the reference algebra: parsing symbolic
// references of the form "path#symbol::sub" and deciding hierarchical
// containment between two references.
package refs

import "strings"

// Parse splits a reference into its file path and optional symbol path.
func Parse(ref string) (file string, symbol string, hasSymbol bool) {
	if i := strings.Index(ref, "#"); i >= 0 {
		return ref[:i], ref[i+1:], true
	}
	return ref, "", false
}

// IsParentOf reports whether parent hierarchically contains child:
//   - different files are never in a parent-child relationship
//   - a file-only parent (no symbol) contains everything in that file
//   - a child with no symbol is never contained by a parent that has one
//   - equal symbols mean self-containment
//   - otherwise child's symbol must be prefixed by parent's symbol + "::"
func IsParentOf(parent, child string) bool {
	parentFile, parentSymbol, parentHasSymbol := Parse(parent)
	childFile, childSymbol, childHasSymbol := Parse(child)

	if parentFile != childFile {
		return false
	}
	if !parentHasSymbol {
		return true
	}
	if !childHasSymbol {
		return false
	}
	if parentSymbol == childSymbol {
		return true
	}
	return strings.HasPrefix(childSymbol, parentSymbol+"::")
}
