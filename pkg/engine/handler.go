package engine

import (
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/responsefilter"
	"github.com/3leaps/webhunt/pkg/wordlist"
)

// HandlerContext is the narrow interface a response handler needs from
// the pool it runs inside. The handler-to-pool reference would
// otherwise be a cycle; the handler depends on a few methods instead
// of the whole Pool type.
type HandlerContext interface {
	Enqueue(t Task)
	Wordlists() []wordlist.Wordlist
	Config() RunConfig
	AddProgressTotal(n int)
	Logger() *zap.Logger
}

// Handler is the response-handler strategy: recursive or template.
type Handler interface {
	// Init seeds the queue with this handler's initial tasks.
	Init(ctx HandlerContext) error
	// Handle processes one accepted response.
	Handle(resp *responsefilter.Response, ctx HandlerContext) error
}
