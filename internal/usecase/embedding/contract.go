package embedding

import (
	"github.com/luminehq/lumine/internal/domain"
)

// Factory builds the underlying embedder on first use. Construction may
// dial the provider, so it is deferred until an embedding is needed.
type Factory func() (domain.Embedder, error)
