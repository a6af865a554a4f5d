package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/internal/server"
	"github.com/3leaps/webhunt/internal/server/handlers"
	"github.com/3leaps/webhunt/pkg/engine"
	"github.com/3leaps/webhunt/pkg/intrange"
	"github.com/3leaps/webhunt/pkg/responsefilter"
	"github.com/3leaps/webhunt/pkg/state"
	"github.com/3leaps/webhunt/pkg/throttle"
	"github.com/3leaps/webhunt/pkg/wordlist"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] URL WORDLIST...",
	Short: "Run a content-discovery fuzzing pass against URL",
	Long: `Run enumerates directories/files beneath URL (recursive mode) or
substitutes wordlist entries into URL (template mode), filtering and
classifying every response, and optionally persists/resumes progress
through a local state file.

Example:
  webhunt run https://example.com/ wordlist.txt --threads 20 -m recursive
  webhunt run 'https://example.com/$/login' wordlist.txt -m template
  webhunt run https://example.com/ wordlist.txt --resume --state-file run.db`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

var (
	runThreads       int
	runThrottleSpec  string
	runMode          string
	runDepth         int
	runRetries       int
	runRetryCodes    string
	runForce         bool
	runForceRecurse  bool
	runMethod        string
	runHeaders       []string
	runBody          string
	runFilters       string
	runWordlistFilt  string
	runTransforms    string
	runMerges        []string
	runShow          []string
	runHTTP1         bool
	runHTTP2         bool
	runBell          bool
	runResume        bool
	runNoSave        bool
	runStateFile     string
	runSummaryFile   string
	runStatusAddr    string
	runStatusEnabled bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	defaultThreads := runtime.NumCPU() * 5
	runCmd.Flags().IntVarP(&runThreads, "threads", "T", defaultThreads, "Number of concurrent workers")
	runCmd.Flags().StringVar(&runThrottleSpec, "throttle", "", "Max requests/sec, optionally \"<max>:<mode>\" with mode simple|dynamic")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "recursive", "Handler mode: recursive|template")
	runCmd.Flags().IntVarP(&runDepth, "depth", "d", 1, "Maximum recursion depth (recursive mode)")
	runCmd.Flags().IntVarP(&runRetries, "retries", "r", 0, "Retries for transport errors and --retry-codes")
	runCmd.Flags().StringVar(&runRetryCodes, "retry-codes", "", "Status ranges that trigger a retry, e.g. 500-599")
	runCmd.Flags().BoolVar(&runForce, "force", false, "Proceed even if the target host appears unreachable")
	runCmd.Flags().BoolVar(&runForceRecurse, "force-recursion", false, "Recurse beneath every response, not only classified directories")
	runCmd.Flags().StringVarP(&runMethod, "method", "X", http.MethodGet, "HTTP method")
	runCmd.Flags().StringArrayVarP(&runHeaders, "header", "H", nil, "Header \"[scope]name:value\"; scope is a comma-separated depth list or \"all\"")
	runCmd.Flags().StringVar(&runBody, "data", "", "Request body")
	runCmd.Flags().StringVarP(&runFilters, "filters", "f", "", "Response filter expression")
	runCmd.Flags().StringVarP(&runWordlistFilt, "wordlist-filter", "w", "", "Wordlist filter expression")
	runCmd.Flags().StringVarP(&runTransforms, "transforms", "t", "", "Wordlist transforms \"[scope]name[:value];...\"")
	runCmd.Flags().StringArrayVar(&runMerges, "merge", nil, "Merge directive \"src1,src2=dest\"")
	runCmd.Flags().StringSliceVarP(&runShow, "show", "s", nil, "Response fields to show: body|headers|type|time|status|length")
	runCmd.Flags().BoolVar(&runHTTP1, "http1", false, "Force HTTP/1.1 (disable HTTP/2 upgrade)")
	runCmd.Flags().BoolVar(&runHTTP2, "http2", false, "Prefer HTTP/2 where the server supports it")
	runCmd.Flags().BoolVar(&runBell, "bell", false, "Ring the terminal bell on every hit")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume from --state-file (fails if it holds no saved run)")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not persist state on exit")
	runCmd.Flags().StringVar(&runStateFile, "state-file", ".webhunt_state", "Path to the SQLite state/resume database")
	runCmd.Flags().StringVar(&runSummaryFile, "summary-file", "", "Path for the YAML run summary (default: <state-file>.summary.yaml; disabled by --no-save unless set explicitly)")
	runCmd.Flags().StringVar(&runStatusAddr, "status-addr", "localhost:8085", "host:port for the status/metrics HTTP surface")
	runCmd.Flags().BoolVar(&runStatusEnabled, "status", false, "Serve a status/metrics HTTP surface while running")
}

func runRun(cmd *cobra.Command, args []string) error {
	closeLogger, err := newLogger()
	if err != nil {
		return err
	}
	defer closeLogger()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	baseURL := args[0]
	sources, err := parseWordlistSources(args[1:])
	if err != nil {
		return exitError("cmd: %w", err)
	}

	mode, err := engine.ParseMode(runMode)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	retryCodes, err := parseRetryCodes(runRetryCodes)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	headers, err := parseHeaderSpecs(runHeaders)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	transforms, err := parseTransformSpecs(runTransforms)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	merges, err := parseMergeDirectives(runMerges)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	wordlists, err := wordlist.Load(wordlist.Options{
		Sources:    sources,
		Transforms: transforms,
		FilterExpr: runWordlistFilt,
		Merges:     merges,
	})
	if err != nil {
		return exitError("cmd: loading wordlists: %w", err)
	}

	filter, err := responsefilter.Compile(runFilters)
	if err != nil {
		return exitError("cmd: compiling filter expression: %w", err)
	}

	thr, err := buildThrottler(runThrottleSpec)
	if err != nil {
		return exitError("cmd: %w", err)
	}
	metricsThr := throttle.NewWithMetrics(thr)

	cfg := engine.RunConfig{
		Threads:        runThreads,
		BaseURL:        baseURL,
		Mode:           mode,
		Method:         runMethod,
		Retries:        runRetries,
		RetryCodes:     retryCodes,
		ForceRecursion: runForceRecurse,
		MaxDepth:       engine.ComputeMaxDepth(runDepth),
		Bell:           runBell,
		Headers:        headers,
		Body:           runBody,
		HasBody:        runBody != "",
		NeedsBody:      filter.NeedsBody() || showNeedsBody(runShow),
	}

	if runHTTP1 && runHTTP2 {
		return exitError("cmd: --http1 and --http2 are mutually exclusive")
	}
	client := &http.Client{Transport: buildTransport(runHTTP1, runHTTP2)}

	if err := checkReachable(ctx, client, baseURL, runForce); err != nil {
		return exitError("cmd: %w", err)
	}

	pool, err := engine.New(cfg, client, filter, metricsThr, wordlists, appLogger)
	if err != nil {
		return exitError("cmd: %w", err)
	}

	store, snapshot, err := loadResumeState(ctx, baseURL)
	if err != nil {
		return exitError("cmd: %w", err)
	}
	if store != nil {
		defer store.Close()
	}
	if snapshot != nil {
		state.Restore(pool, snapshot)
		appLogger.Info("resumed run", zap.String("run_id", snapshot.RunID), zap.Int("pending", len(snapshot.Pending)), zap.Int("results", len(snapshot.Results)))
	}

	var statusServer *server.Server
	if runStatusEnabled {
		handlers.InitHealthManager(versionInfo.Version)
		host, port := splitHostPort(runStatusAddr)
		statusServer = server.New(host, port, &handlers.StatusSource{Throttler: metricsThr, Run: pool.Stats()})
		go func() {
			if err := http.ListenAndServe(statusServer.Addr(), statusServer.Handler()); err != nil && err != http.ErrServerClosed {
				appLogger.Warn("status server stopped", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	results, runErr := pool.Run(ctx)
	elapsed := time.Since(start)

	if !runNoSave {
		if saveErr := persistState(cmd.Context(), store, pool, baseURL); saveErr != nil {
			appLogger.Warn("failed to persist state", zap.Error(saveErr))
		}
	}

	if summaryErr := writeRunSummary(pool, baseURL, mode, results, elapsed); summaryErr != nil {
		appLogger.Warn("failed to write run summary", zap.Error(summaryErr))
	}

	appLogger.Info("run complete",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", elapsed),
		zap.Int64("requests", pool.Stats().Snapshot().TotalRequests),
	)

	if runErr != nil {
		return exitError("cmd: run: %w", runErr)
	}
	return nil
}

// showNeedsBody reports whether any -s/--show field requires the
// response body to be buffered, the other half of the "body present
// iff a filter or shown field requires it" rule.
func showNeedsBody(fields []string) bool {
	for _, f := range fields {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "body", "length":
			return true
		}
	}
	return false
}

// buildTransport forces the HTTP version when --http1 or --http2 was
// given. Emptying TLSNextProto disables the h2 upgrade entirely;
// ForceAttemptHTTP2 asks for h2 even on proxied/custom-dialer
// connections.
func buildTransport(http1, http2 bool) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if http1 {
		t.ForceAttemptHTTP2 = false
		t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	if http2 {
		t.ForceAttemptHTTP2 = true
	}
	return t
}

// checkReachable probes the target host's root before any workers
// start, so an unreachable host fails the run up front instead of
// producing one transport error per task. --force skips the abort (the
// probe still runs, feeding the log).
func checkReachable(ctx context.Context, client *http.Client, baseURL string, force bool) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", baseURL, err)
	}
	probe := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.String(), nil)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", baseURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if force {
			appLogger.Warn("target host unreachable, continuing under --force", zap.String("url", probe.String()), zap.Error(err))
			return nil
		}
		return fmt.Errorf("target host unreachable (rerun with --force to fuzz anyway): %w", err)
	}
	defer resp.Body.Close()
	return nil
}

func splitHostPort(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func buildThrottler(spec string) (throttle.Throttler, error) {
	if spec == "" {
		return throttle.None{}, nil
	}
	rateStr, mode, _ := strings.Cut(spec, ":")
	rps, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid --throttle rate %q: %w", rateStr, err)
	}
	switch mode {
	case "", "simple":
		return throttle.NewFixed(rps), nil
	case "dynamic":
		return throttle.NewAdaptive(throttle.AdaptiveConfig{
			InitialRPS:     rps,
			MaxRPS:         rps,
			MinRPS:         1,
			IncreaseFactor: 1.1,
			DecreaseFactor: 0.75,
			WindowSize:     5 * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown throttle mode %q", mode)
	}
}

func parseWordlistSources(specs []string) ([]wordlist.Source, error) {
	sources := make([]wordlist.Source, 0, len(specs))
	for _, spec := range specs {
		path, key, found := strings.Cut(spec, ":")
		if !found {
			key = "$"
		}
		sources = append(sources, wordlist.Source{Path: path, Key: key})
	}
	expanded, err := wordlist.ExpandGlobSources(sources)
	if err != nil {
		return nil, fmt.Errorf("expanding wordlist globs: %w", err)
	}
	return expanded, nil
}

func parseRetryCodes(spec string) ([]intrange.Range[int], error) {
	if spec == "" {
		return nil, nil
	}
	ranges, err := intrange.ParseList[int](spec)
	if err != nil {
		return nil, fmt.Errorf("invalid --retry-codes %q: %w", spec, err)
	}
	return ranges, nil
}

// parseScopedAtom splits a "[scope]rest" token into its optional
// bracketed scope list and the remaining text, the same atom syntax
// filter expressions use.
func parseScopedAtom(token string) (scope []string, rest string) {
	if strings.HasPrefix(token, "[") {
		if idx := strings.Index(token, "]"); idx > 0 {
			scopeStr := token[1:idx]
			rest = token[idx+1:]
			if scopeStr != "" {
				scope = strings.Split(scopeStr, ",")
			}
			return scope, rest
		}
	}
	return nil, token
}

func parseHeaderSpecs(raw []string) ([]engine.HeaderSpec, error) {
	specs := make([]engine.HeaderSpec, 0, len(raw))
	for _, r := range raw {
		scope, rest := parseScopedAtom(r)
		name, value, found := strings.Cut(rest, ":")
		if !found {
			return nil, fmt.Errorf("invalid header spec %q: expected name:value", r)
		}
		specs = append(specs, engine.HeaderSpec{
			Scope: scope,
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return specs, nil
}

func parseTransformSpecs(spec string) ([]wordlist.TransformSpec, error) {
	if spec == "" {
		return nil, nil
	}
	var specs []wordlist.TransformSpec
	for _, token := range strings.Split(spec, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		scope, rest := parseScopedAtom(token)
		name, arg, _ := strings.Cut(rest, ":")
		specs = append(specs, wordlist.TransformSpec{
			Scope: scope,
			Name:  strings.TrimSpace(name),
			Arg:   strings.TrimSpace(arg),
		})
	}
	return specs, nil
}

func parseMergeDirectives(raw []string) ([]wordlist.MergeDirective, error) {
	directives := make([]wordlist.MergeDirective, 0, len(raw))
	for _, r := range raw {
		srcs, dest, found := strings.Cut(r, "=")
		if !found || dest == "" {
			return nil, fmt.Errorf("invalid --merge spec %q: expected src1,src2=dest", r)
		}
		directives = append(directives, wordlist.MergeDirective{
			Sources: strings.Split(srcs, ","),
			Dest:    dest,
		})
	}
	return directives, nil
}

func loadResumeState(ctx context.Context, baseURL string) (*state.Store, *state.Snapshot, error) {
	if runNoSave && !runResume {
		return nil, nil, nil
	}
	store, err := state.Open(ctx, runStateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state file: %w", err)
	}
	if !runResume {
		return store, nil, nil
	}
	snapshot, err := store.Load(ctx, baseURL)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("resuming state: %w", err)
	}
	return store, snapshot, nil
}

func persistState(ctx context.Context, store *state.Store, pool *engine.Pool, baseURL string) error {
	if store == nil {
		return nil
	}
	snap := state.SnapshotFromPool(pool, baseURL)
	return store.Save(ctx, snap)
}

// writeRunSummary exports the schema-validated YAML run summary next
// to the state database (or to --summary-file when given). --no-save
// suppresses the default path but an explicit --summary-file still
// writes.
func writeRunSummary(pool *engine.Pool, baseURL string, mode engine.Mode, results map[string]*responsefilter.Response, elapsed time.Duration) error {
	path := runSummaryFile
	if path == "" {
		if runNoSave {
			return nil
		}
		path = runStateFile + ".summary.yaml"
	}

	var resultBytes int64
	for _, r := range results {
		resultBytes += int64(len(r.Body))
	}

	summary := state.BuildRunSummary(pool.RunID(), baseURL, mode, pool.Stats().Snapshot(), elapsed, resultBytes)
	out, err := summary.ToYAML()
	if err != nil {
		return fmt.Errorf("building run summary: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing run summary %q: %w", path, err)
	}
	return nil
}
