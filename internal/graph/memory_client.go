package graph

import (
	"context"
	"strings"
	"sync"
)

// MemoryClient records executed statements and replays canned results. It
// lets repository tests assert on Cypher and parameters without a database.
//
// Results are served from a responder registered for a fragment of the
// statement text first, then from the FIFO queues.
type MemoryClient struct {
	mu           sync.Mutex
	calls        []ExecutedQuery
	readResults  []Result
	writeResults []Result
	responders   []responder
	err          error
	connectivity error
}

type responder struct {
	fragment string
	results  []Result
}

// ExecutedQuery captures one statement sent to the client.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
	Write  bool
}

// NewMemoryClient returns an empty client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent statement fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// PushReadResult queues a result for the next unmatched ExecuteRead.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

// PushWriteResult queues a result for the next unmatched ExecuteWrite.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeResults = append(m.writeResults, res)
}

// Respond serves results, in order, to statements containing fragment. The
// last result repeats once the others are used up.
func (m *MemoryClient) Respond(fragment string, results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responders = append(m.responders, responder{fragment: fragment, results: results})
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(cypher, params, true)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(cypher, params, false)
}

func (m *MemoryClient) execute(cypher string, params map[string]any, write bool) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	m.calls = append(m.calls, ExecutedQuery{Query: cypher, Params: cloneMap(params), Write: write})

	for i := range m.responders {
		r := &m.responders[i]
		if !strings.Contains(cypher, r.fragment) || len(r.results) == 0 {
			continue
		}
		res := r.results[0]
		if len(r.results) > 1 {
			r.results = r.results[1:]
		}
		return res, nil
	}

	queue := &m.readResults
	if write {
		queue = &m.writeResults
	}
	if len(*queue) == 0 {
		return Result{}, nil
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// Calls returns every executed statement in order.
func (m *MemoryClient) Calls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.calls...)
}

// WriteCalls returns the executed write statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	return m.filter(true)
}

// ReadCalls returns the executed read statements.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	return m.filter(false)
}

func (m *MemoryClient) filter(write bool) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, c := range m.calls {
		if c.Write == write {
			out = append(out, c)
		}
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
