package websearch

import (
	"context"
	"sync"
)

type fakeSearcher struct {
	mu       sync.Mutex
	requests []TavilyRequest
	results  []TavilyResult
	err      error
	block    bool
}

func (f *fakeSearcher) Search(ctx context.Context, req TavilyRequest) (*TavilyResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &TavilyResponse{Query: req.Query, Results: f.results}, nil
}

func (f *fakeSearcher) lastRequest() TavilyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func results(titles ...string) []TavilyResult {
	out := make([]TavilyResult, 0, len(titles))
	for _, title := range titles {
		out = append(out, TavilyResult{
			Title:   title,
			URL:     "https://math.stackexchange.com/" + title,
			Content: "Worked solution for " + title,
		})
	}
	return out
}
