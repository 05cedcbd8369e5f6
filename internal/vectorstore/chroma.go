package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openfs/openfs/internal/embed"
)

// Chroma is an HTTP client for a Chroma-compatible vector database. It
// talks to the v1 collections API: POST .../upsert, POST .../query, POST
// .../delete.
type Chroma struct {
	baseURL string
	client  *http.Client
}

// NewChroma returns a Chroma client pointed at baseURL (e.g.
// "http://localhost:8000").
func NewChroma(baseURL string) *Chroma {
	return &Chroma{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Chroma) collectionURL(collection, action string) string {
	return fmt.Sprintf("%s/api/v1/collections/%s/%s", c.baseURL, url.PathEscape(collection), action)
}

type addRequest struct {
	IDs        []string            `json:"ids"`
	Documents  []string            `json:"documents"`
	Embeddings [][]float32         `json:"embeddings"`
	Metadatas  []map[string]string `json:"metadatas"`
}

func (c *Chroma) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	req := addRequest{
		IDs:        make([]string, len(records)),
		Documents:  make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]string, len(records)),
	}
	for i, r := range records {
		req.IDs[i] = r.ID
		req.Documents[i] = r.Text
		req.Embeddings[i] = []float32(r.Dense)
		req.Metadatas[i] = r.Metadata
	}
	return c.post(ctx, c.collectionURL(collection, "upsert"), req, nil)
}

type queryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
}

type queryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Distances [][]float64           `json:"distances"`
}

func (c *Chroma) Query(ctx context.Context, collection string, vector embed.Vector, limit int) ([]SearchResult, error) {
	req := queryRequest{QueryEmbeddings: [][]float32{vector}, NResults: limit}
	var resp queryResponse
	if err := c.post(ctx, c.collectionURL(collection, "query"), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	ids, docs, metas, dists := resp.IDs[0], resp.Documents[0], resp.Metadatas[0], resp.Distances[0]
	out := make([]SearchResult, len(ids))
	for i, id := range ids {
		score := 1 - dists[i] // Chroma returns cosine distance by default
		out[i] = SearchResult{ID: id, DenseScore: score, Score: score}
		if i < len(docs) {
			out[i].Text = docs[i]
		}
		if i < len(metas) {
			out[i].Metadata = metas[i]
		}
	}
	return out, nil
}

type deleteRequest struct {
	Where map[string]string `json:"where"`
}

func (c *Chroma) DeleteWhere(ctx context.Context, collection string, key, value string) error {
	return c.post(ctx, c.collectionURL(collection, "delete"), deleteRequest{Where: map[string]string{key: value}}, nil)
}

func (c *Chroma) post(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma request to %s: unexpected status %s", url, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ Store = (*Chroma)(nil)
