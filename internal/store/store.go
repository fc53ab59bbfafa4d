// Package store defines the narrow document-store collaborator the pipeline
// depends on. The pipeline only needs single-document operations: create,
// get by id, atomic field updates, exact-match lookup, and upsert. No
// cross-document transactions.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document with the given id (or field match)
// does not exist.
var ErrNotFound = errors.New("document not found")

// Fields is a flat set of field assignments applied to one document.
type Fields map[string]any

// Update describes a single-document atomic update.
type Update struct {
	// Set assigns fields unconditionally.
	Set Fields
	// SetIfUnset assigns a field only when it is currently null or absent.
	// First write wins; later updates leave the value untouched.
	SetIfUnset Fields
	// Inc increments numeric counters, treating absent fields as zero.
	Inc map[string]int64
}

// Documents is the persistence collaborator. Implementations must apply
// Update atomically within one document.
type Documents interface {
	Insert(ctx context.Context, collection, id string, doc any) error
	Get(ctx context.Context, collection, id string, out any) error
	UpdateFields(ctx context.Context, collection, id string, u Update) error
	FindByField(ctx context.Context, collection, field string, value any, out any) error
	Upsert(ctx context.Context, collection, id string, doc any) error
	Ping(ctx context.Context) error
}
