// Package batch evaluates many independent requests on a bounded worker pool.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/lettergraph/pkg/domain"
	"github.com/aretw0/lettergraph/pkg/ports"
)

// DefaultWorkers is used when no worker count is configured.
const DefaultWorkers = 8

// maxLine bounds a single JSONL job.
const maxLine = 8 << 20

// Job is one request of a batch. ID defaults to the job's position.
type Job struct {
	ID string `json:"id,omitempty"`
	domain.Request
}

// Item is the outcome of one job. Exactly one of Result and Err is set.
type Item struct {
	ID     string                   `json:"id"`
	Result *domain.EvaluationResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
	Err    error                    `json:"-"`
}

// Runner evaluates jobs concurrently. A failing or panicking job never affects
// the others.
type Runner struct {
	eval    ports.Evaluator
	workers int
	logger  *slog.Logger
}

type Option func(*Runner)

// WithWorkers bounds the number of concurrent evaluations.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner over eval.
func New(eval ports.Evaluator, opts ...Option) *Runner {
	r := &Runner{
		eval:    eval,
		workers: DefaultWorkers,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates jobs and returns one item per job, in job order. Jobs not
// started before ctx is done fail with domain.ErrCancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Item {
	items := make([]Item, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for i, job := range jobs {
		id := job.ID
		if id == "" {
			id = fmt.Sprint(i)
		}
		items[i].ID = id
		if err := ctx.Err(); err != nil {
			items[i].fail(fmt.Errorf("%w: %w", domain.ErrCancelled, err))
			continue
		}
		g.Go(func() error {
			res, err := r.evaluate(ctx, job.Request)
			if err != nil {
				r.logger.Warn("batch job failed", "job_id", id, "graph_id", job.GraphID, "err", err)
				items[i].fail(err)
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func (r *Runner) evaluate(ctx context.Context, req domain.Request) (res *domain.EvaluationResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("evaluation panicked: %v", p)
		}
	}()
	return r.eval.Evaluate(ctx, req)
}

func (it *Item) fail(err error) {
	it.Err = err
	it.Error = err.Error()
}

// Summary counts items by outcome. Failed jobs are counted under "error".
func Summary(items []Item) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		if it.Err != nil {
			out["error"]++
			continue
		}
		out[string(it.Result.Outcome)]++
	}
	return out
}

// DecodeJobs reads one JSON job per line. Blank lines and lines starting with
// # are skipped.
func DecodeJobs(r io.Reader) ([]Job, error) {
	var jobs []Job
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(text), &job); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, job)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	if len(jobs) == 0 {
		return nil, errors.New("no jobs")
	}
	return jobs, nil
}

// EncodeItems writes one JSON item per line.
func EncodeItems(w io.Writer, items []Item) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}
