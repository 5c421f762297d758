package ports

import (
	"context"

	"github.com/aretw0/formflow/pkg/schema"
)

// SchemaSource produces form definitions.
// This allows the schema origin (files, embedded data, a database) to be decoupled.
type SchemaSource interface {
	// Definition reads and decodes the current definition. It does not
	// validate it; schema.Load does.
	Definition(ctx context.Context) (schema.Definition, error)
}

// Watchable defines an interface for sources that can notify about changes.
// This is used for hot reload.
type Watchable interface {
	// Watch returns a channel that is signaled when the definition changes.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
