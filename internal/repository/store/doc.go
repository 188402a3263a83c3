// Package store implements persistence for the alert-docserver document tree.
//
// The FileRepository stores and loads the whole tree as JSON on disk and
// exposes a Repository interface that the doc-server service depends on.
package store
