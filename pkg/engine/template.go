package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/responsefilter"
	"github.com/3leaps/webhunt/pkg/wordlist"
)

// TemplateHandler substitutes each wordlist's key wherever it occurs
// in the base URL, enumerating the Cartesian product of all
// wordlists. It never enqueues follow-up tasks: every URL it will ever
// produce is generated once, up front, in Init.
type TemplateHandler struct{}

// NewTemplateHandler builds a TemplateHandler.
func NewTemplateHandler() *TemplateHandler { return &TemplateHandler{} }

// Init generates every templated URL and enqueues it as a depth-0
// task.
func (h *TemplateHandler) Init(ctx HandlerContext) error {
	urls, err := generateTemplateURLs(ctx.Config().BaseURL, ctx.Wordlists())
	if err != nil {
		return err
	}
	for _, u := range urls {
		ctx.Enqueue(NewTemplateTask(u))
	}
	ctx.AddProgressTotal(len(urls))
	return nil
}

// Handle just reports the hit (error-classified responses are skipped);
// template mode never recurses.
func (h *TemplateHandler) Handle(resp *responsefilter.Response, ctx HandlerContext) error {
	if resp.Classification == responsefilter.ClassificationError {
		ctx.Logger().Debug("skip: error response", zap.String("url", resp.URL), zap.Int("status", resp.Status))
		return nil
	}
	ctx.Logger().Info("hit", zap.String("url", resp.URL), zap.Int("status", resp.Status))
	return nil
}

// generateTemplateURLs builds the URL segment skeleton (literal spans
// interleaved with placeholders for each occurrence of a wordlist's
// key in baseURL) and enumerates the Cartesian product of the
// wordlists, filling every occurrence of a given wordlist's key with
// the same word in each combination.
func generateTemplateURLs(baseURL string, wordlists []wordlist.Wordlist) ([]string, error) {
	type occurrence struct {
		pos, wlIdx, keyLen int
	}

	var occurrences []occurrence
	for wlIdx, wl := range wordlists {
		for _, pos := range findAllPositions(baseURL, wl.Key) {
			occurrences = append(occurrences, occurrence{pos: pos, wlIdx: wlIdx, keyLen: len(wl.Key)})
		}
	}
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("engine: no template markers found in URL %q", baseURL)
	}

	// Stable sort by position; ties keep declaration order, since
	// occurrences were appended in wordlist-declaration order above.
	for i := 1; i < len(occurrences); i++ {
		for j := i; j > 0 && occurrences[j-1].pos > occurrences[j].pos; j-- {
			occurrences[j-1], occurrences[j] = occurrences[j], occurrences[j-1]
		}
	}

	segments := make([]string, 0, len(occurrences)*2+1)
	wlToSegIdx := make([][]int, len(wordlists))
	lastEnd := 0
	for _, occ := range occurrences {
		if occ.pos > lastEnd {
			segments = append(segments, baseURL[lastEnd:occ.pos])
		}
		wlToSegIdx[occ.wlIdx] = append(wlToSegIdx[occ.wlIdx], len(segments))
		segments = append(segments, "") // placeholder, filled per combination
		lastEnd = occ.pos + occ.keyLen
	}
	if lastEnd < len(baseURL) {
		segments = append(segments, baseURL[lastEnd:])
	}

	total := 1
	for _, wl := range wordlists {
		total *= len(wl.Words)
	}
	urls := make([]string, 0, total)

	combo := make([]string, len(wordlists))
	var fill func(idx int)
	fill = func(idx int) {
		if idx == len(wordlists) {
			out := make([]string, len(segments))
			copy(out, segments)
			for wlIdx, word := range combo {
				for _, segIdx := range wlToSegIdx[wlIdx] {
					out[segIdx] = word
				}
			}
			urls = append(urls, strings.Join(out, ""))
			return
		}
		for _, word := range wordlists[idx].Words {
			combo[idx] = word
			fill(idx + 1)
		}
	}
	fill(0)

	return urls, nil
}

// findAllPositions returns every non-overlapping occurrence of key in
// s, scanning left to right.
func findAllPositions(s, key string) []int {
	if key == "" {
		return nil
	}
	var out []int
	start := 0
	for {
		idx := strings.Index(s[start:], key)
		if idx < 0 {
			break
		}
		pos := start + idx
		out = append(out, pos)
		start = pos + len(key)
	}
	return out
}
