package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3leaps/webhunt/pkg/engine"
	"github.com/3leaps/webhunt/pkg/responsefilter"
)

func TestParseWordlistSourcesDefaultKey(t *testing.T) {
	sources, err := parseWordlistSources([]string{"wordlist.txt"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "wordlist.txt", sources[0].Path)
	assert.Equal(t, "$", sources[0].Key)
}

func TestParseWordlistSourcesExplicitKey(t *testing.T) {
	sources, err := parseWordlistSources([]string{"users.txt:USER"})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "users.txt", sources[0].Path)
	assert.Equal(t, "USER", sources[0].Key)
}

func TestParseRetryCodesEmpty(t *testing.T) {
	codes, err := parseRetryCodes("")
	require.NoError(t, err)
	assert.Nil(t, codes)
}

func TestParseRetryCodesRange(t *testing.T) {
	codes, err := parseRetryCodes("500-599")
	require.NoError(t, err)
	assert.Len(t, codes, 1)
}

func TestParseRetryCodesInvalid(t *testing.T) {
	_, err := parseRetryCodes("not-a-range")
	assert.Error(t, err)
}

func TestParseHeaderSpecsNoScope(t *testing.T) {
	specs, err := parseHeaderSpecs([]string{"X-Auth: token"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Nil(t, specs[0].Scope)
	assert.Equal(t, "X-Auth", specs[0].Name)
	assert.Equal(t, "token", specs[0].Value)
}

func TestParseHeaderSpecsWithScope(t *testing.T) {
	specs, err := parseHeaderSpecs([]string{"[1,2]X-Auth:token"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"1", "2"}, specs[0].Scope)
	assert.Equal(t, "X-Auth", specs[0].Name)
	assert.Equal(t, "token", specs[0].Value)
}

func TestParseHeaderSpecsMissingColon(t *testing.T) {
	_, err := parseHeaderSpecs([]string{"X-Auth"})
	assert.Error(t, err)
}

func TestParseTransformSpecs(t *testing.T) {
	specs, err := parseTransformSpecs("[A]case:upper;remove")
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"A"}, specs[0].Scope)
	assert.Equal(t, "case", specs[0].Name)
	assert.Equal(t, "upper", specs[0].Arg)
	assert.Nil(t, specs[1].Scope)
	assert.Equal(t, "remove", specs[1].Name)
}

func TestParseMergeDirectives(t *testing.T) {
	directives, err := parseMergeDirectives([]string{"src1,src2=dest"})
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, []string{"src1", "src2"}, directives[0].Sources)
	assert.Equal(t, "dest", directives[0].Dest)
}

func TestParseMergeDirectivesMissingDest(t *testing.T) {
	_, err := parseMergeDirectives([]string{"src1,src2"})
	assert.Error(t, err)
}

func TestBuildThrottlerDefaultsToNone(t *testing.T) {
	thr, err := buildThrottler("")
	require.NoError(t, err)
	assert.NotNil(t, thr)
}

func TestBuildThrottlerSimple(t *testing.T) {
	thr, err := buildThrottler("10:simple")
	require.NoError(t, err)
	assert.NotNil(t, thr)
}

func TestBuildThrottlerDynamic(t *testing.T) {
	thr, err := buildThrottler("10:dynamic")
	require.NoError(t, err)
	assert.NotNil(t, thr)
}

func TestBuildThrottlerInvalidMode(t *testing.T) {
	_, err := buildThrottler("10:bogus")
	assert.Error(t, err)
}

func TestBuildThrottlerInvalidRate(t *testing.T) {
	_, err := buildThrottler("notanumber")
	assert.Error(t, err)
}

func TestSplitHostPort(t *testing.T) {
	host, port := splitHostPort("localhost:8085")
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 8085, port)
}

func TestWriteRunSummary(t *testing.T) {
	dir := t.TempDir()
	origSummary, origState, origNoSave := runSummaryFile, runStateFile, runNoSave
	defer func() { runSummaryFile, runStateFile, runNoSave = origSummary, origState, origNoSave }()
	runSummaryFile = filepath.Join(dir, "summary.yaml")
	runNoSave = false

	filter, err := responsefilter.Compile("")
	require.NoError(t, err)
	pool, err := engine.New(engine.RunConfig{
		Threads: 1,
		Mode:    engine.ModeRecursive,
		Method:  http.MethodGet,
		BaseURL: "http://h/",
	}, http.DefaultClient, filter, nil, nil, zap.NewNop())
	require.NoError(t, err)

	results := map[string]*responsefilter.Response{
		"http://h/a": {URL: "http://h/a", Status: 200, Body: []byte("xyz")},
	}
	require.NoError(t, writeRunSummary(pool, "http://h/", engine.ModeRecursive, results, time.Second))

	data, err := os.ReadFile(runSummaryFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url: http://h/")
	assert.Contains(t, string(data), "mode: recursive")
}

func TestWriteRunSummaryNoSaveSkipsDefaultPath(t *testing.T) {
	dir := t.TempDir()
	origSummary, origState, origNoSave := runSummaryFile, runStateFile, runNoSave
	defer func() { runSummaryFile, runStateFile, runNoSave = origSummary, origState, origNoSave }()
	runSummaryFile = ""
	runStateFile = filepath.Join(dir, "state.db")
	runNoSave = true

	filter, err := responsefilter.Compile("")
	require.NoError(t, err)
	pool, err := engine.New(engine.RunConfig{
		Threads: 1,
		Mode:    engine.ModeRecursive,
		Method:  http.MethodGet,
		BaseURL: "http://h/",
	}, http.DefaultClient, filter, nil, nil, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, writeRunSummary(pool, "http://h/", engine.ModeRecursive, nil, time.Second))
	_, err = os.Stat(runStateFile + ".summary.yaml")
	assert.True(t, os.IsNotExist(err))
}

func TestShowNeedsBody(t *testing.T) {
	assert.False(t, showNeedsBody(nil))
	assert.False(t, showNeedsBody([]string{"status", "time", "type"}))
	assert.True(t, showNeedsBody([]string{"status", "body"}))
	assert.True(t, showNeedsBody([]string{"length"}))
}

func TestBuildTransportHTTP1DisablesH2(t *testing.T) {
	rt := buildTransport(true, false)
	tr, ok := rt.(*http.Transport)
	require.True(t, ok)
	assert.False(t, tr.ForceAttemptHTTP2)
	assert.NotNil(t, tr.TLSNextProto)
	assert.Empty(t, tr.TLSNextProto)
}

func TestCheckReachableProbesHostRoot(t *testing.T) {
	var probed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.Path
	}))
	defer srv.Close()

	err := checkReachable(context.Background(), srv.Client(), srv.URL+"/deep/$", false)
	require.NoError(t, err)
	assert.Equal(t, "/", probed)
}

func TestCheckReachableFailsWithoutForce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	err := checkReachable(context.Background(), &http.Client{}, srv.URL, false)
	assert.Error(t, err)
	assert.NoError(t, checkReachable(context.Background(), &http.Client{}, srv.URL, true))
}
