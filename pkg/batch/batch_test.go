package batch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lettergraph/pkg/batch"
	"github.com/aretw0/lettergraph/pkg/domain"
)

type fakeEvaluator struct {
	running atomic.Int32
	peak    atomic.Int32
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req domain.Request) (*domain.EvaluationResult, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	switch req.GraphID {
	case "missing":
		return nil, domain.ErrGraphNotFound
	case "panic":
		panic("boom")
	}
	return &domain.EvaluationResult{GraphID: req.GraphID, RenderedContent: string(req.Data), Outcome: domain.OutcomeClean}, nil
}

func (f *fakeEvaluator) EvaluateDocument(context.Context, *domain.GraphDocument, domain.Request) (*domain.EvaluationResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeEvaluator) Validate(context.Context, *domain.GraphDocument) error { return nil }

func TestRunner_OrderAndIsolation(t *testing.T) {
	eval := &fakeEvaluator{}
	r := batch.New(eval, batch.WithWorkers(2))

	jobs := []batch.Job{
		{ID: "a", Request: domain.Request{GraphID: "denial", Data: json.RawMessage(`1`)}},
		{Request: domain.Request{GraphID: "missing"}},
		{ID: "c", Request: domain.Request{GraphID: "panic"}},
		{ID: "d", Request: domain.Request{GraphID: "denial", Data: json.RawMessage(`4`)}},
		{ID: "e", Request: domain.Request{GraphID: "denial", Data: json.RawMessage(`5`)}},
	}
	items := r.Run(context.Background(), jobs)

	require.Len(t, items, 5)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "1", items[0].Result.RenderedContent)
	assert.Equal(t, "1", items[1].ID, "missing ids default to the position")
	assert.ErrorIs(t, items[1].Err, domain.ErrGraphNotFound)
	assert.Contains(t, items[2].Error, "panicked")
	assert.Equal(t, "5", items[4].Result.RenderedContent)
	assert.LessOrEqual(t, eval.peak.Load(), int32(2))

	assert.Equal(t, map[string]int{"clean": 3, "error": 2}, batch.Summary(items))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := batch.New(&fakeEvaluator{}).Run(ctx, []batch.Job{{Request: domain.Request{GraphID: "denial"}}})
	require.Len(t, items, 1)
	assert.ErrorIs(t, items[0].Err, domain.ErrCancelled)
}

func TestDecodeAndEncode(t *testing.T) {
	input := `# claims of 2024-03-15
{"id":"m1","graphId":"denial","channel":"mail","dataContext":{"claim":{"status":"DENIED"}}}

{"graphId":"denial","format":"text"}
`
	jobs, err := batch.DecodeJobs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "m1", jobs[0].ID)
	assert.Equal(t, "mail", jobs[0].Channel)
	assert.JSONEq(t, `{"claim":{"status":"DENIED"}}`, string(jobs[0].Data))
	assert.Equal(t, "text", jobs[1].Format)

	_, err = batch.DecodeJobs(strings.NewReader("{\"graphId\":\"a\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = batch.DecodeJobs(strings.NewReader("\n"))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, batch.EncodeItems(&buf, []batch.Item{
		{ID: "m1", Result: &domain.EvaluationResult{Outcome: domain.OutcomeClean}},
		{ID: "m2", Error: "graph not found"},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"outcome":"clean"`)
	assert.JSONEq(t, `{"id":"m2","error":"graph not found"}`, lines[1])
}
