// Package ir defines the intermediate representation consumed by the rawbuf
// code generators.
//
// The IR is shader-agnostic: it is not tied to the language it was produced
// from or the one it is translated to.
//
// # Structure
//
// A Module holds arenas addressed by typed handles:
//   - Types: type definitions with their precomputed layout
//   - Constants: module-scope constant values
//   - GlobalVariables: module-scope variables (storage, uniform, private)
//   - Functions: function definitions with their expression arenas
//   - EntryPoints: compute entry points with their workgroup size
//
// # Layout
//
// Types headed for host-shareable memory carry their layout explicitly.
// Struct members record their byte Offset, structs their Span, and arrays
// their Stride. Code generators never recompute layout; TypeSpan and
// ValidateStorageLayout read and check what the producer recorded.
//
// # References
//
// Expressions referring to global or local variables evaluate to pointers.
// Access and AccessIndex through a pointer yield another pointer, and Load
// turns a pointer into the value it refers to. ResolveExpressionType
// computes the type of any expression under these rules.
package ir
