// Package core defines the wire types shared by every statbank package.
//
// This package contains:
//   - Catalog tree nodes (Subject, TableRef) returned by the subjects endpoint
//   - Table metadata (TableInfo, Variable, Value) returned by the tableinfo endpoint
//   - Scalar coercion helpers for the portal's loosely typed JSON
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
