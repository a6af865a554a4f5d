package engine

import (
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/responsefilter"
)

// RecursiveHandler descends into every response classified as a
// directory, injecting the full wordlist set beneath it, up to the
// configured maximum depth.
type RecursiveHandler struct{}

// NewRecursiveHandler builds a RecursiveHandler.
func NewRecursiveHandler() *RecursiveHandler { return &RecursiveHandler{} }

// Init injects every wordlist entry as a depth-0 task rooted at the
// run's base URL.
func (h *RecursiveHandler) Init(ctx HandlerContext) error {
	base := ctx.Config().BaseURL
	total := 0
	for _, wl := range ctx.Wordlists() {
		for _, w := range wl.Words {
			ctx.Enqueue(NewRecursiveTask(joinURL(base, w), 0))
			total++
		}
	}
	ctx.AddProgressTotal(total)
	return nil
}

// Handle skips error-classified responses; otherwise it recurses
// beneath resp if it is still within depth budget and either
// force-recursion is set or the response classifies as a directory,
// and logs why it skipped when it does not.
func (h *RecursiveHandler) Handle(resp *responsefilter.Response, ctx HandlerContext) error {
	cfg := ctx.Config()
	log := ctx.Logger()

	if resp.Classification == responsefilter.ClassificationError {
		log.Debug("skip: error response", zap.String("url", resp.URL), zap.Int("status", resp.Status))
		return nil
	}

	if resp.Depth < cfg.MaxDepth {
		if cfg.ForceRecursion || resp.Classification == responsefilter.ClassificationDirectory {
			log.Info("hit", zap.String("url", resp.URL), zap.Int("status", resp.Status), zap.Int("depth", resp.Depth))

			total := 0
			for _, wl := range ctx.Wordlists() {
				for _, w := range wl.Words {
					ctx.Enqueue(NewRecursiveTask(joinURL(resp.URL, w), resp.Depth+1))
					total++
				}
			}
			ctx.AddProgressTotal(total)
		} else {
			log.Debug("skip: non-directory", zap.String("url", resp.URL), zap.Int("status", resp.Status))
		}
	} else {
		log.Debug("skip: max-depth", zap.String("url", resp.URL), zap.Int("depth", resp.Depth))
	}

	return nil
}
