// Package core defines the shared language of repolens.
//
// This package contains:
//   - The tree data model (TreeNode, NodeKind, Forest)
//   - Collaborator interfaces (Lister, ChildLister, ContentFetcher, Importer)
//   - Import request/record types
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
