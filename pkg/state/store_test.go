package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/webhunt/pkg/engine"
	"github.com/3leaps/webhunt/pkg/responsefilter"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := Snapshot{
		RunID:   "run-1",
		BaseURL: "http://h/",
		Pending: []engine.Task{
			{URL: "http://h/a", Depth: 1, Retry: 0},
			{URL: "http://h/b", Depth: 2, Retry: 1, Body: "payload", HasBody: true, Headers: map[string]string{"X-Auth": "t"}},
		},
		Results: map[string]*responsefilter.Response{
			"http://h/c": {
				URL:            "http://h/c",
				Status:         200,
				Headers:        map[string][]string{"Content-Type": {"text/html"}},
				Body:           []byte("hello"),
				Depth:          0,
				Classification: responsefilter.ClassificationFile,
			},
		},
	}
	require.NoError(t, s.Save(ctx, snap))

	loaded, err := s.Load(ctx, "http://h/")
	require.NoError(t, err)

	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, "http://h/", loaded.BaseURL)
	require.Len(t, loaded.Pending, 2)
	assert.Equal(t, "http://h/a", loaded.Pending[0].URL)
	assert.Equal(t, "http://h/b", loaded.Pending[1].URL)
	assert.True(t, loaded.Pending[1].HasBody)
	assert.Equal(t, "payload", loaded.Pending[1].Body)
	assert.Equal(t, map[string]string{"X-Auth": "t"}, loaded.Pending[1].Headers)

	require.Contains(t, loaded.Results, "http://h/c")
	got := loaded.Results["http://h/c"]
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, []byte("hello"), got.Body)
	assert.Equal(t, responsefilter.ClassificationFile, got.Classification)
}

func TestLoadFailsOnBaseURLMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Snapshot{RunID: "run-1", BaseURL: "http://h/"}))

	_, err := s.Load(ctx, "http://other/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBaseURLMismatch))
}

func TestLoadFailsWhenNothingPersisted(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "http://h/")
	assert.Error(t, err)
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Snapshot{
		RunID:   "run-1",
		BaseURL: "http://h/",
		Pending: []engine.Task{{URL: "http://h/old", Depth: 0}},
	}))
	require.NoError(t, s.Save(ctx, Snapshot{
		RunID:   "run-2",
		BaseURL: "http://h/",
		Pending: []engine.Task{{URL: "http://h/new", Depth: 0}},
	}))

	loaded, err := s.Load(ctx, "http://h/")
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.RunID)
	require.Len(t, loaded.Pending, 1)
	assert.Equal(t, "http://h/new", loaded.Pending[0].URL)
}

func TestErrorResponsePreservesMessage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Snapshot{
		RunID:   "run-1",
		BaseURL: "http://h/",
		Results: map[string]*responsefilter.Response{
			"http://h/down": {
				URL:            "http://h/down",
				Classification: responsefilter.ClassificationError,
				Err:            errors.New("connection refused"),
			},
		},
	}))

	loaded, err := s.Load(ctx, "http://h/")
	require.NoError(t, err)
	got := loaded.Results["http://h/down"]
	require.NotNil(t, got)
	require.Error(t, got.Err)
	assert.Equal(t, "connection refused", got.Err.Error())
}
