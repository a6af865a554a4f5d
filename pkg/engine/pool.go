// Package engine implements the fuzzing engine: the worker pool that
// drives tasks through the queue, throttler, HTTP client, filter
// expression, and response handler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/classify"
	"github.com/3leaps/webhunt/pkg/intrange"
	"github.com/3leaps/webhunt/pkg/queue"
	"github.com/3leaps/webhunt/pkg/responsefilter"
	"github.com/3leaps/webhunt/pkg/throttle"
	"github.com/3leaps/webhunt/pkg/wordlist"
)

// HTTPClient is the subset of *http.Client the pool depends on, so
// tests can substitute a fake transport without starting a real
// listener.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// errRequeued signals that a transport-level failure was requeued and
// the worker loop should move on without further processing.
var errRequeued = errors.New("engine: task requeued after transport error")

// Pool is the worker pool: it owns the task queue and results map and
// shares the HTTP client, throttler, filter, and handler read-only
// across every worker goroutine.
type Pool struct {
	cfg       RunConfig
	client    HTTPClient
	filter    *responsefilter.Filter
	handler   Handler
	throttler throttle.Throttler
	wordlists []wordlist.Wordlist
	global    *queue.Injector[Task]
	logger    *zap.Logger
	runID     string
	stats     RunStats
	resumed   bool

	progressMu    sync.Mutex
	progressTotal int
	progressDone  int

	resultsMu sync.RWMutex
	results   map[string]*responsefilter.Response
}

// New builds a Pool ready to Run. throttler may be nil (nil throttler
// means unthrottled); a nil filter is a configuration error caught
// here.
func New(cfg RunConfig, client HTTPClient, filter *responsefilter.Filter, thr throttle.Throttler, wordlists []wordlist.Wordlist, logger *zap.Logger) (*Pool, error) {
	if filter == nil {
		return nil, fmt.Errorf("engine: filter must not be nil")
	}
	if cfg.Threads <= 0 {
		return nil, fmt.Errorf("engine: threads must be positive, got %d", cfg.Threads)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var handler Handler
	switch cfg.Mode {
	case ModeRecursive:
		handler = NewRecursiveHandler()
	case ModeTemplate:
		handler = NewTemplateHandler()
	default:
		return nil, fmt.Errorf("engine: unknown mode %d", cfg.Mode)
	}

	return &Pool{
		cfg:       cfg,
		client:    client,
		filter:    filter,
		handler:   handler,
		throttler: thr,
		wordlists: wordlists,
		global:    queue.NewInjector[Task](),
		logger:    logger,
		runID:     uuid.NewString(),
		results:   make(map[string]*responsefilter.Response),
	}, nil
}

// RunID is the per-run correlation identifier used in log fields and
// in the persisted state's metadata row.
func (p *Pool) RunID() string { return p.runID }

// Stats returns the run's retry/drop counters.
func (p *Pool) Stats() *RunStats { return &p.stats }

// --- HandlerContext ---

func (p *Pool) Enqueue(t Task) { p.global.Push(t) }

func (p *Pool) Wordlists() []wordlist.Wordlist { return p.wordlists }

func (p *Pool) Config() RunConfig { return p.cfg }

func (p *Pool) Logger() *zap.Logger { return p.logger }

func (p *Pool) AddProgressTotal(n int) {
	p.progressMu.Lock()
	p.progressTotal += n
	p.progressMu.Unlock()
}

func (p *Pool) incProgressDone() {
	p.progressMu.Lock()
	p.progressDone++
	p.progressMu.Unlock()
}

// Progress reports (completed, total) task counts, for a status
// surface.
func (p *Pool) Progress() (int, int) {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	return p.progressDone, p.progressTotal
}

// --- persistence hooks (consumed by pkg/state) ---

// DrainPending removes and returns every task still queued, leaving
// the injector empty. Used when snapshotting state at shutdown.
func (p *Pool) DrainPending() []Task { return p.global.Drain() }

// SeedPending pushes previously-persisted tasks back onto the global
// queue and marks the pool as resumed, so Run skips the handler's
// initial injection and the progress total starts at the restored
// queue length.
func (p *Pool) SeedPending(tasks []Task) {
	for _, t := range tasks {
		p.global.Push(t)
	}
	p.AddProgressTotal(len(tasks))
	p.resumed = true
}

// Results returns a snapshot copy of the results map.
func (p *Pool) Results() map[string]*responsefilter.Response {
	p.resultsMu.RLock()
	defer p.resultsMu.RUnlock()
	out := make(map[string]*responsefilter.Response, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out
}

// SeedResults merges previously-persisted completed results into the
// results map. Used on resume.
func (p *Pool) SeedResults(results map[string]*responsefilter.Response) {
	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()
	for k, v := range results {
		p.results[k] = v
	}
}

func (p *Pool) storeResult(resp *responsefilter.Response) {
	p.resultsMu.Lock()
	p.results[resp.URL] = resp
	p.resultsMu.Unlock()
	p.stats.TotalResults.Add(1)
}

func (p *Pool) isRetryCode(status int) bool {
	return intrange.AnyContains(p.cfg.RetryCodes, status)
}

func ringBell() { fmt.Print("\a") }

// Run starts the handler's initial task injection, spawns one worker
// goroutine per configured thread, and blocks until every worker finds
// the queue permanently empty or ctx is canceled. It returns the
// accumulated results.
func (p *Pool) Run(ctx context.Context) (map[string]*responsefilter.Response, error) {
	if !p.resumed {
		if err := p.handler.Init(p); err != nil {
			return nil, fmt.Errorf("engine: handler init: %w", err)
		}
	}

	workers := make([]*queue.Worker[Task], p.cfg.Threads)
	for i := range workers {
		workers[i] = queue.NewWorker[Task]()
	}
	stealers := make([]queue.Stealer[Task], len(workers))
	for i, w := range workers {
		stealers[i] = w.Stealer()
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(workers))
	for i, w := range workers {
		peers := otherStealers(stealers, i)
		wg.Add(1)
		go func(local *queue.Worker[Task], peers []queue.Stealer[Task]) {
			defer wg.Done()
			if err := p.runWorker(ctx, local, peers); err != nil {
				errCh <- err
			}
		}(w, peers)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return p.Results(), err
		}
	}
	return p.Results(), nil
}

func otherStealers(stealers []queue.Stealer[Task], skip int) []queue.Stealer[Task] {
	out := make([]queue.Stealer[Task], 0, len(stealers)-1)
	for i, s := range stealers {
		if i != skip {
			out = append(out, s)
		}
	}
	return out
}

// runWorker implements the per-worker loop: find task, wait for a
// throttle permit, execute the request, apply retry policy, then
// filter and hand off to the response handler.
func (p *Pool) runWorker(ctx context.Context, local *queue.Worker[Task], peers []queue.Stealer[Task]) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		task, ok := queue.FindTask(local, p.global, peers)
		if !ok {
			return nil
		}

		if p.throttler != nil {
			if err := p.throttler.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("engine: throttle wait: %w", err)
			}
		}

		resp, err := p.executeRequest(ctx, task)
		if err != nil {
			if errors.Is(err, errRequeued) {
				continue
			}
			return err
		}

		if p.throttler != nil {
			p.throttler.RecordResponse(resp.Status)
		}
		p.stats.TotalRequests.Add(1)

		if resp.Classification == responsefilter.ClassificationError {
			// Retries (if any remained) already happened and requeued
			// inside executeRequest; this path only runs once the retry
			// budget is exhausted. Still handed to the handler, which
			// skips it, but never inserted into results.
			p.incProgressDone()
			if herr := p.handler.Handle(resp, p); herr != nil {
				return fmt.Errorf("engine: handler: %w", herr)
			}
			continue
		}

		if p.isRetryCode(resp.Status) {
			if task.Retry < p.cfg.Retries {
				p.stats.TotalRetries.Add(1)
				p.global.Push(task.retried())
				p.AddProgressTotal(1)
				p.incProgressDone()
				continue
			}
			p.stats.TotalDroppedAfterExhaustion.Add(1)
			p.logger.Warn("dropped after retries exhausted",
				zap.String("url", task.URL),
				zap.Int("retries", p.cfg.Retries),
				zap.Int("status", resp.Status),
			)
			p.incProgressDone()
			errResp := &responsefilter.Response{
				URL:            resp.URL,
				Status:         resp.Status,
				Headers:        resp.Headers,
				Depth:          resp.Depth,
				Elapsed:        resp.Elapsed,
				Classification: responsefilter.ClassificationError,
				Err:            fmt.Errorf("engine: retry codes exhausted at status %d", resp.Status),
			}
			if herr := p.handler.Handle(errResp, p); herr != nil {
				return fmt.Errorf("engine: handler: %w", herr)
			}
			continue
		}

		p.incProgressDone()

		matched, err := p.filter.Match(resp)
		if err != nil {
			return fmt.Errorf("engine: filter: %w", err)
		}
		if matched {
			if herr := p.handler.Handle(resp, p); herr != nil {
				return fmt.Errorf("engine: handler: %w", herr)
			}
			if p.cfg.Bell {
				ringBell()
			}
			p.storeResult(resp)
		}
	}
}

// executeRequest performs the HTTP request for task, resolving its
// method/headers/body. A transport-level failure is pushed back onto
// the global queue (returning errRequeued) while budget remains; once
// exhausted it returns a synthetic error-classified response instead
// of an error.
func (p *Pool) executeRequest(ctx context.Context, task Task) (*responsefilter.Response, error) {
	start := time.Now()

	headers := task.Headers
	if headers == nil {
		headers = ResolveHeaders(p.cfg.Headers, task.Depth)
	}

	body := task.Body
	hasBody := task.HasBody
	if !hasBody && p.cfg.HasBody {
		body = p.cfg.Body
		hasBody = true
	}

	var bodyReader io.Reader
	if hasBody {
		bodyReader = strings.NewReader(body)
	}

	req, reqErr := http.NewRequestWithContext(ctx, p.cfg.Method, task.URL, bodyReader)
	if reqErr == nil {
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	var httpResp *http.Response
	var doErr error
	if reqErr == nil {
		httpResp, doErr = p.client.Do(req)
	} else {
		doErr = reqErr
	}

	if doErr != nil {
		if task.Retry < p.cfg.Retries {
			p.stats.TotalRetries.Add(1)
			p.global.Push(task.retried())
			p.AddProgressTotal(1)
			return nil, errRequeued
		}
		p.stats.TotalDroppedAfterExhaustion.Add(1)
		p.logger.Warn("transport error after retries exhausted",
			zap.String("url", task.URL),
			zap.Int("retries", p.cfg.Retries),
			zap.Error(doErr),
		)
		return &responsefilter.Response{
			URL:            task.URL,
			Status:         0,
			Depth:          task.Depth,
			Elapsed:        time.Since(start),
			Classification: responsefilter.ClassificationError,
			Err:            doErr,
		}, nil
	}
	defer httpResp.Body.Close()

	var bodyBytes []byte
	if p.cfg.NeedsBody {
		var readErr error
		bodyBytes, readErr = io.ReadAll(httpResp.Body)
		if readErr != nil {
			return &responsefilter.Response{
				URL:            task.URL,
				Status:         httpResp.StatusCode,
				Depth:          task.Depth,
				Elapsed:        time.Since(start),
				Classification: responsefilter.ClassificationError,
				Err:            readErr,
			}, nil
		}
	}

	finalURL := task.URL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}

	resp := &responsefilter.Response{
		URL:     finalURL,
		Status:  httpResp.StatusCode,
		Headers: httpResp.Header,
		Body:    bodyBytes,
		Elapsed: time.Since(start),
		Depth:   task.Depth,
	}
	if classify.IsDirectory(resp) {
		resp.Classification = responsefilter.ClassificationDirectory
	} else {
		resp.Classification = responsefilter.ClassificationFile
	}
	return resp, nil
}
