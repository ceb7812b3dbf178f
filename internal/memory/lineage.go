package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/reverie-ai/reverie/internal/models"
)

// LineageStore records how discoveries descend from earlier thoughts.
type LineageStore interface {
	RecordStrike(ctx context.Context, t models.Thought) error
	Ancestry(ctx context.Context, thoughtID string, depth int) ([]models.Thought, error)
	Close() error
}

// DgraphLineageStore keeps a graph of gold strikes and their parent
// chains in Dgraph, so the discovery context of a strike can be walked
// later. It is optional; sessions run fine without it.
type DgraphLineageStore struct {
	client *dgo.Dgraph
	conn   *grpc.ClientConn
}

// NewDgraphLineageStore connects to a Dgraph alpha at addr.
func NewDgraphLineageStore(addr string) (*DgraphLineageStore, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Dgraph: %w", err)
	}

	store := &DgraphLineageStore{
		client: dgo.NewDgraphClient(api.NewDgraphClient(conn)),
		conn:   conn,
	}

	if err := store.initSchema(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *DgraphLineageStore) initSchema(ctx context.Context) error {
	schema := `
		type Strike {
			strike.id: string
			strike.content: string
			strike.kind: string
			strike.score: float
			strike.recorded: datetime
			derived_from: uid
		}

		strike.id: string @index(exact) @upsert .
		strike.content: string @index(fulltext) .
		strike.kind: string @index(exact) .
		strike.score: float .
		strike.recorded: datetime .
		derived_from: uid @reverse .
	`

	return s.client.Alter(ctx, &api.Operation{Schema: schema})
}

// RecordStrike upserts the strike node and, when the thought has a
// parent, a derived_from edge to it. The parent node is created as a
// stub if it has not been recorded yet.
func (s *DgraphLineageStore) RecordStrike(ctx context.Context, t models.Thought) error {
	node := map[string]any{
		"uid":             "uid(node)",
		"strike.id":       t.ID,
		"strike.content":  t.Content,
		"strike.kind":     string(t.Kind),
		"strike.score":    t.Score,
		"strike.recorded": time.Now().Format(time.RFC3339),
		"dgraph.type":     "Strike",
	}
	if t.ParentID != "" {
		node["derived_from"] = map[string]any{
			"uid":         "uid(parent)",
			"strike.id":   t.ParentID,
			"dgraph.type": "Strike",
		}
	}

	setJSON, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal strike: %w", err)
	}

	query := fmt.Sprintf(`query {
		node as var(func: eq(strike.id, %q))
		parent as var(func: eq(strike.id, %q))
	}`, t.ID, t.ParentID)

	req := &api.Request{
		Query:     query,
		Mutations: []*api.Mutation{{SetJson: setJSON}},
		CommitNow: true,
	}

	txn := s.client.NewTxn()
	defer txn.Discard(ctx)

	_, err = txn.Do(ctx, req)
	return err
}

// Ancestry walks derived_from edges up to depth hops from thoughtID.
func (s *DgraphLineageStore) Ancestry(ctx context.Context, thoughtID string, depth int) ([]models.Thought, error) {
	q := fmt.Sprintf(`{
		ancestry(func: eq(strike.id, %q)) @recurse(depth: %d) {
			strike.id
			strike.content
			strike.kind
			strike.score
			derived_from
		}
	}`, thoughtID, depth)

	txn := s.client.NewReadOnlyTxn()
	defer txn.Discard(ctx)

	resp, err := txn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ancestry query failed: %w", err)
	}

	var result struct {
		Ancestry []struct {
			ID      string  `json:"strike.id"`
			Content string  `json:"strike.content"`
			Kind    string  `json:"strike.kind"`
			Score   float64 `json:"strike.score"`
		} `json:"ancestry"`
	}
	if err := json.Unmarshal(resp.Json, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]models.Thought, len(result.Ancestry))
	for i, n := range result.Ancestry {
		out[i] = models.Thought{
			ID:      n.ID,
			Content: n.Content,
			Kind:    models.Kind(n.Kind),
			Score:   n.Score,
		}
	}
	return out, nil
}

// Close closes the Dgraph connection.
func (s *DgraphLineageStore) Close() error {
	return s.conn.Close()
}
