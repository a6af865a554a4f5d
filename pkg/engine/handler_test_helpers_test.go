package engine

import (
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/wordlist"
)

// fakeCtx is a minimal in-memory HandlerContext for handler unit
// tests, standing in for a Pool without starting any goroutines.
type fakeCtx struct {
	cfg           RunConfig
	wordlists     []wordlist.Wordlist
	enqueued      []Task
	progressAdded int
}

func (f *fakeCtx) Enqueue(t Task) { f.enqueued = append(f.enqueued, t) }

func (f *fakeCtx) Wordlists() []wordlist.Wordlist { return f.wordlists }

func (f *fakeCtx) Config() RunConfig { return f.cfg }

func (f *fakeCtx) AddProgressTotal(n int) { f.progressAdded += n }

func (f *fakeCtx) Logger() *zap.Logger { return zap.NewNop() }
