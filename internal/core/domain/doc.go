// Package domain defines the core entities of the extraction pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentID: the stable key of one source document
//   - Stage: a pipeline step and its artifact
//   - StructuredResult / AssetRecord: validated extraction output
//   - SiteMetadata / SiteIndex: the external site table
//   - FlatRow: one output table record
//   - DocumentState: the per-document state machine
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
