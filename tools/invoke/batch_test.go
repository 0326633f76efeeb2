package invoke

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/apiflow/testutil/mocks"
	"github.com/BaSui01/apiflow/types"
)

func TestEngine_CallBatch(t *testing.T) {
	upstream := mocks.NewMockUpstream().
		WithJSON(http.MethodGet, "/pages/a", http.StatusOK, `{"id":"a"}`).
		WithJSON(http.MethodGet, "/pages/b", http.StatusOK, `{"id":"b"}`).
		WithJSON(http.MethodGet, "/pages/c", http.StatusNotFound, `{"message":"missing"}`)
	defer upstream.Close()

	e := newPagesEngine(t, upstream)

	outcomes := e.CallBatch(context.Background(), []Request{
		{Tool: "retrievePage", Arguments: map[string]any{"page_id": "a"}},
		{Tool: "retrievePage", Arguments: map[string]any{"page_id": "c"}},
		{Tool: "unknown"},
		{Tool: "retrievePage", Arguments: map[string]any{"page_id": "b"}},
	}, 2)

	require.Len(t, outcomes, 4)

	assert.Nil(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Result)
	assert.JSONEq(t, `{"id":"a"}`, string(outcomes[0].Result.Result))

	require.NotNil(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Result)
	assert.Equal(t, types.ErrUpstreamAPI, outcomes[1].Err.Code)

	require.NotNil(t, outcomes[2].Err)
	assert.Equal(t, types.ErrToolNotFound, outcomes[2].Err.Code)
	assert.Equal(t, "unknown", outcomes[2].Tool)

	assert.Nil(t, outcomes[3].Err)
	assert.JSONEq(t, `{"id":"b"}`, string(outcomes[3].Result.Result))
}

// inflight 统计同时进行的上游请求数
type inflight struct {
	current atomic.Int32
	peak    atomic.Int32
}

func TestEngine_CallBatchLimit(t *testing.T) {
	var lr inflight
	server := mocks.NewMockUpstream().
		WithDefaultResponse(mocks.Response{Status: http.StatusOK, ContentType: "application/json", Body: `{"id":"x"}`, Delay: 50 * time.Millisecond})
	defer server.Close()

	client := server.Client()
	base := client.Transport
	client.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := lr.current.Add(1)
		defer lr.current.Add(-1)
		for {
			p := lr.peak.Load()
			if n <= p || lr.peak.CompareAndSwap(p, n) {
				break
			}
		}
		return base.RoundTrip(req)
	})

	e := newPagesEngine(t, server, WithHTTPClient(client))

	reqs := make([]Request, 9)
	for i := range reqs {
		reqs[i] = Request{Tool: "retrievePage", Arguments: map[string]any{"page_id": "p"}}
	}
	outcomes := e.CallBatch(context.Background(), reqs, 3)

	for _, o := range outcomes {
		assert.Nil(t, o.Err)
	}
	assert.LessOrEqual(t, lr.peak.Load(), int32(3))
	assert.Equal(t, 9, server.GetRequestCount())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
