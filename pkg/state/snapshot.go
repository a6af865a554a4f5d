package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/3leaps/webhunt/pkg/engine"
	"github.com/3leaps/webhunt/pkg/responsefilter"
)

// Snapshot is the full on-shutdown materialization of a run: its
// identity, the tasks still in flight, and the results already
// accepted.
type Snapshot struct {
	RunID   string
	BaseURL string
	Pending []engine.Task
	Results map[string]*responsefilter.Response
}

// Save replaces any previously persisted snapshot with snap, inside a
// single transaction so a crash mid-write never leaves a half-updated
// state file.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `DELETE FROM state_meta`); err != nil {
		return fmt.Errorf("state: clear meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state_meta (id, schema_version, run_id, base_url, created_at, updated_at) VALUES (1, ?, ?, ?, ?, ?)`,
		schemaVersion, snap.RunID, snap.BaseURL, now, now,
	); err != nil {
		return fmt.Errorf("state: write meta: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_tasks`); err != nil {
		return fmt.Errorf("state: clear pending tasks: %w", err)
	}
	for _, task := range snap.Pending {
		headersJSON, err := marshalHeaders(task.Headers)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending_tasks (url, depth, retry, body, has_body, headers_json) VALUES (?, ?, ?, ?, ?, ?)`,
			task.URL, task.Depth, task.Retry, task.Body, boolToInt(task.HasBody), headersJSON,
		); err != nil {
			return fmt.Errorf("state: write pending task %q: %w", task.URL, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM completed_results`); err != nil {
		return fmt.Errorf("state: clear completed results: %w", err)
	}
	for url, resp := range snap.Results {
		headersJSON, err := json.Marshal(resp.Headers)
		if err != nil {
			return fmt.Errorf("state: marshal headers for %q: %w", url, err)
		}
		var errMsg sql.NullString
		if resp.Err != nil {
			errMsg = sql.NullString{String: resp.Err.Error(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO completed_results (url, status, headers_json, body, elapsed_ms, depth, classification, err_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			url, resp.Status, string(headersJSON), resp.Body, resp.Elapsed.Milliseconds(), resp.Depth, int(resp.Classification), errMsg,
		); err != nil {
			return fmt.Errorf("state: write result %q: %w", url, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit save: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot and verifies its base URL matches
// expectedBaseURL. A mismatch is a fatal error to the caller, not a
// silent reset.
func (s *Store) Load(ctx context.Context, expectedBaseURL string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx, `SELECT run_id, base_url FROM state_meta WHERE id = 1`).Scan(&snap.RunID, &snap.BaseURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state: no persisted run found to resume")
	}
	if err != nil {
		return nil, fmt.Errorf("state: read meta: %w", err)
	}
	if snap.BaseURL != expectedBaseURL {
		return nil, fmt.Errorf("%w: persisted %q, requested %q", ErrBaseURLMismatch, snap.BaseURL, expectedBaseURL)
	}

	pending, err := s.loadPending(ctx)
	if err != nil {
		return nil, err
	}
	snap.Pending = pending

	results, err := s.loadResults(ctx)
	if err != nil {
		return nil, err
	}
	snap.Results = results

	return &snap, nil
}

func (s *Store) loadPending(ctx context.Context) ([]engine.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, depth, retry, body, has_body, headers_json FROM pending_tasks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("state: query pending tasks: %w", err)
	}
	defer rows.Close()

	var out []engine.Task
	for rows.Next() {
		var (
			task        engine.Task
			hasBodyInt  int
			headersJSON sql.NullString
		)
		if err := rows.Scan(&task.URL, &task.Depth, &task.Retry, &task.Body, &hasBodyInt, &headersJSON); err != nil {
			return nil, fmt.Errorf("state: scan pending task: %w", err)
		}
		task.HasBody = hasBodyInt != 0
		task.Headers, err = unmarshalHeaders(headersJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterate pending tasks: %w", err)
	}
	return out, nil
}

func (s *Store) loadResults(ctx context.Context) (map[string]*responsefilter.Response, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, status, headers_json, body, elapsed_ms, depth, classification, err_message FROM completed_results`)
	if err != nil {
		return nil, fmt.Errorf("state: query completed results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*responsefilter.Response)
	for rows.Next() {
		var (
			url            string
			status         int
			headersJSON    sql.NullString
			body           []byte
			elapsedMS      int64
			depth          int
			classification int
			errMsg         sql.NullString
		)
		if err := rows.Scan(&url, &status, &headersJSON, &body, &elapsedMS, &depth, &classification, &errMsg); err != nil {
			return nil, fmt.Errorf("state: scan completed result: %w", err)
		}

		var headers map[string][]string
		if headersJSON.Valid && headersJSON.String != "" {
			if err := json.Unmarshal([]byte(headersJSON.String), &headers); err != nil {
				return nil, fmt.Errorf("state: unmarshal headers for %q: %w", url, err)
			}
		}

		resp := &responsefilter.Response{
			URL:            url,
			Status:         status,
			Headers:        headers,
			Body:           body,
			Elapsed:        time.Duration(elapsedMS) * time.Millisecond,
			Depth:          depth,
			Classification: responsefilter.Classification(classification),
		}
		if errMsg.Valid {
			resp.Err = errors.New(errMsg.String)
		}
		out[url] = resp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterate completed results: %w", err)
	}
	return out, nil
}

func marshalHeaders(headers map[string]string) (sql.NullString, error) {
	if len(headers) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("state: marshal task headers: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalHeaders(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal([]byte(s.String), &headers); err != nil {
		return nil, fmt.Errorf("state: unmarshal task headers: %w", err)
	}
	return headers, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SnapshotFromPool builds a Snapshot from a running pool's current
// pending queue and results, for use immediately before Save on
// shutdown.
func SnapshotFromPool(p *engine.Pool, baseURL string) Snapshot {
	return Snapshot{
		RunID:   p.RunID(),
		BaseURL: baseURL,
		Pending: p.DrainPending(),
		Results: p.Results(),
	}
}

// Restore pushes a loaded snapshot's pending tasks and completed
// results back into p, for use immediately after Load on resume.
func Restore(p *engine.Pool, snap *Snapshot) {
	p.SeedPending(snap.Pending)
	p.SeedResults(snap.Results)
}
