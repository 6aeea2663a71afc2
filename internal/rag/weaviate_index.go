package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/math-agent/models"
)

// WeaviateIndex stores entries in a Weaviate class. Each Replace writes a new
// generation class named <base>_<n> and only then switches searches to it,
// so readers keep hitting the previous generation while a reload runs.
type WeaviateIndex struct {
	client      *weaviate.Client
	baseClass   string
	concurrency int
	logger      *zap.Logger

	mu     sync.RWMutex
	active string
}

// NewWeaviateIndex connects to the Weaviate instance at rawURL.
func NewWeaviateIndex(rawURL, baseClass string, concurrency int, logger *zap.Logger) (*WeaviateIndex, error) {
	cfg := weaviate.Config{Host: rawURL, Scheme: "http"}
	if strings.HasPrefix(rawURL, "https://") {
		cfg.Scheme = "https"
		cfg.Host = strings.TrimPrefix(rawURL, "https://")
	} else {
		cfg.Host = strings.TrimPrefix(rawURL, "http://")
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	return &WeaviateIndex{
		client:      client,
		baseClass:   baseClass,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// weaviateObject is the GraphQL projection of one stored entry.
type weaviateObject struct {
	EntryID       string   `json:"entryId"`
	Question      string   `json:"question"`
	Solution      string   `json:"solution"`
	Steps         []string `json:"steps"`
	Topic         string   `json:"topic"`
	Difficulty    string   `json:"difficulty"`
	Tags          []string `json:"tags"`
	CitationTitle string   `json:"citationTitle"`
	CitationURL   string   `json:"citationUrl"`
	Additional    struct {
		Distance float64 `json:"distance"`
	} `json:"_additional"`
}

func (o weaviateObject) entry() models.KnowledgeEntry {
	e := models.KnowledgeEntry{
		ID:         o.EntryID,
		Question:   o.Question,
		Solution:   o.Solution,
		Steps:      o.Steps,
		Topic:      o.Topic,
		Difficulty: o.Difficulty,
		Tags:       o.Tags,
	}
	if o.CitationURL != "" {
		e.Citation = &models.Reference{Title: o.CitationTitle, URL: o.CitationURL}
	}
	return e
}

func entryProperties(e models.KnowledgeEntry) map[string]interface{} {
	props := map[string]interface{}{
		"entryId":    e.ID,
		"question":   e.Question,
		"solution":   e.Solution,
		"topic":      e.Topic,
		"difficulty": e.Difficulty,
	}
	// Auto-schema cannot infer a type from an empty array.
	if len(e.Steps) > 0 {
		props["steps"] = e.Steps
	}
	if len(e.Tags) > 0 {
		props["tags"] = e.Tags
	}
	if e.Citation != nil {
		props["citationTitle"] = e.Citation.Title
		props["citationUrl"] = e.Citation.URL
	}
	return props
}

// Replace implements VectorIndex.
func (w *WeaviateIndex) Replace(ctx context.Context, docs []Document) error {
	class := fmt.Sprintf("%s_%d", w.baseClass, time.Now().UnixNano())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(doc.Entry.ID)).String()
			_, err := w.client.Data().Creator().
				WithClassName(class).
				WithID(id).
				WithProperties(entryProperties(doc.Entry)).
				WithVector(doc.Vector).
				Do(gctx)
			if err != nil {
				return fmt.Errorf("store entry %q: %w", doc.Entry.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.dropClass(context.WithoutCancel(ctx), class)
		return err
	}

	w.mu.Lock()
	w.active = class
	w.mu.Unlock()

	w.dropStaleGenerations(ctx, class)
	return nil
}

func (w *WeaviateIndex) dropStaleGenerations(ctx context.Context, keep string) {
	dump, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		w.logger.Warn("list weaviate classes", zap.Error(err))
		return
	}
	prefix := w.baseClass + "_"
	for _, c := range dump.Classes {
		if c == nil || c.Class == keep || !strings.HasPrefix(c.Class, prefix) {
			continue
		}
		if _, err := strconv.ParseInt(strings.TrimPrefix(c.Class, prefix), 10, 64); err != nil {
			continue
		}
		w.dropClass(ctx, c.Class)
	}
}

func (w *WeaviateIndex) dropClass(ctx context.Context, class string) {
	if err := w.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
		w.logger.Warn("delete weaviate class", zap.String("class", class), zap.Error(err))
	}
}

func (w *WeaviateIndex) activeClass() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// Search implements VectorIndex. The score is 1 - cosine distance.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	class := w.activeClass()
	if class == "" || k <= 0 {
		return nil, nil
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: "entryId"},
		{Name: "question"},
		{Name: "solution"},
		{Name: "steps"},
		{Name: "topic"},
		{Name: "difficulty"},
		{Name: "tags"},
		{Name: "citationTitle"},
		{Name: "citationUrl"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("near vector search: %s", result.Errors[0].Message)
	}

	var payload struct {
		Get map[string][]weaviateObject `json:"Get"`
	}
	if err := decodeGraphQLData(result.Data, &payload); err != nil {
		return nil, err
	}

	objects := payload.Get[class]
	matches := make([]Match, 0, len(objects))
	for _, o := range objects {
		matches = append(matches, Match{Entry: o.entry(), Score: 1 - o.Additional.Distance})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})
	return matches, nil
}

// Count implements VectorIndex.
func (w *WeaviateIndex) Count(ctx context.Context) (int, error) {
	class := w.activeClass()
	if class == "" {
		return 0, nil
	}

	result, err := w.client.GraphQL().Aggregate().
		WithClassName(class).
		WithFields(graphql.Field{
			Name:   "meta",
			Fields: []graphql.Field{{Name: "count"}},
		}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("aggregate query failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("aggregate query failed: %s", result.Errors[0].Message)
	}

	var payload struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}
	if err := decodeGraphQLData(result.Data, &payload); err != nil {
		return 0, err
	}
	groups := payload.Aggregate[class]
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].Meta.Count, nil
}

// decodeGraphQLData round-trips the loosely typed response into out.
func decodeGraphQLData(data interface{}, out interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal graphql response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	return nil
}
