// Package fieldval models document field values as the explicitly-typed
// tagged union used on the wire, and converts between that form and the
// ergonomic map[string]any shape callers work with.
//
// Tag infers wire types from runtime types; Untag is its inverse. The
// round-trip law Untag(Tag(x)) == x holds for any x whose integers fit
// int64; larger integers come back as decimal strings.
package fieldval
