package invoke

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/apiflow/types"
)

// DefaultBatchLimit bounds concurrent calls of a batch when no limit is given.
const DefaultBatchLimit = 8

// Request is one call of a batch.
type Request struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Outcome is the result of one batch call; exactly one of Result and Err is
// set.
type Outcome struct {
	Tool   string            `json:"tool"`
	Result *types.ToolResult `json:"result,omitempty"`
	Err    *types.Error      `json:"error,omitempty"`
}

// CallBatch runs reqs with at most limit calls in flight. A failing call
// does not cancel the others. Outcomes are in request order.
func (e *Engine) CallBatch(ctx context.Context, reqs []Request, limit int) []Outcome {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	out := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, r := range reqs {
		g.Go(func() error {
			res, err := e.Call(ctx, r.Tool, r.Arguments)
			out[i] = Outcome{Tool: r.Tool, Result: res}
			if err != nil {
				out[i].Err, _ = types.AsError(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
