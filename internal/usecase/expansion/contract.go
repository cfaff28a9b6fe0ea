package expansion

import (
	"context"

	"github.com/luminehq/lumine/internal/domain"
)

// Completer runs a non-streaming chat completion.
type Completer interface {
	Complete(ctx context.Context, model string, messages []domain.Message) (string, error)
}
