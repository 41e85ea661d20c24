package canvas

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		v := ms[i]
		if i < len(ms)-1 {
			i++
		}
		return time.UnixMilli(v)
	}
}

func TestDropCountsAndChaining(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 20} {
		t.Run(fmt.Sprintf("%d drops", n), func(t *testing.T) {
			c := New(&SequenceIDGenerator{})
			for i := 0; i < n; i++ {
				_, ok := c.Drop(string(KnownNodeTypes[i%len(KnownNodeTypes)]), Point{X: float64(i * 37), Y: 9}, nil)
				require.True(t, ok)
			}
			assert.Equal(t, n, c.NodeCount())
			assert.Equal(t, max(n-1, 0), c.EdgeCount())
		})
	}
}

func TestDropCascadePositions(t *testing.T) {
	c := New(&SequenceIDGenerator{})

	first, ok := c.Drop("llm", Point{X: 120, Y: 80}, nil)
	require.True(t, ok)
	assert.Equal(t, Position{X: 120, Y: 80}, first.Node.Position)
	assert.Nil(t, first.Edge)

	prev := first.Node
	drops := []Point{{X: 0, Y: 0}, {X: 999, Y: -4}, {X: 3, Y: 3}}
	for _, at := range drops {
		res, ok := c.Drop("tool", at, nil)
		require.True(t, ok)
		assert.Equal(t, prev.Position.Offset(350, 50), res.Node.Position)
		require.NotNil(t, res.Edge)
		assert.Equal(t, prev.ID, res.Edge.Source)
		assert.Equal(t, res.Node.ID, res.Edge.Target)
		assert.Equal(t, EdgeStyleSmoothStep, res.Edge.Style)
		prev = res.Node
	}
}

func TestDropEmptyTypeIsNoop(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	_, ok := c.Drop("llm", Point{X: 1, Y: 1}, nil)
	require.True(t, ok)

	for _, tag := range []string{"", "   "} {
		_, ok := c.Drop(tag, Point{X: 50, Y: 50}, nil)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, c.NodeCount())
	assert.Equal(t, 0, c.EdgeCount())
}

func TestDropExampleScenario(t *testing.T) {
	c := New(&ClockIDGenerator{Now: fixedClock(1000, 2000)})

	a, ok := c.Drop("llm", Point{X: 100, Y: 100}, nil)
	require.True(t, ok)
	assert.Equal(t, "llm-1000", a.Node.ID)
	assert.Equal(t, "Llm", a.Node.Label)
	assert.Equal(t, Position{X: 100, Y: 100}, a.Node.Position)

	b, ok := c.Drop("memory", Point{X: 500, Y: 500}, nil)
	require.True(t, ok)
	assert.Equal(t, "memory-2000", b.Node.ID)
	assert.Equal(t, Position{X: 450, Y: 150}, b.Node.Position)
	require.NotNil(t, b.Edge)
	assert.Equal(t, "ellm-1000-memory-2000", b.Edge.ID)

	_, ok = c.Drop("", Point{X: 1, Y: 1}, nil)
	assert.False(t, ok)
	assert.Equal(t, 2, c.NodeCount())
	assert.Equal(t, 1, c.EdgeCount())
}

func TestDropUsesProjectionForFirstNodeOnly(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	proj := ViewportProjector{
		Viewport:  Viewport{X: 20, Y: 10, Zoom: 2},
		Container: &Bounds{Left: 100, Top: 50},
	}

	first, _ := c.Drop("agent", Point{X: 320, Y: 260}, proj)
	assert.Equal(t, Position{X: 100, Y: 100}, first.Node.Position)

	second, _ := c.Drop("agent", Point{X: 320, Y: 260}, proj)
	assert.Equal(t, Position{X: 450, Y: 150}, second.Node.Position)
}

func TestDropUnknownTypeStillCreatesNode(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	res, ok := c.Drop("webhook", Point{}, nil)
	require.True(t, ok)
	assert.Equal(t, NodeType("webhook"), res.Node.Type)
	assert.Equal(t, "Webhook", res.Node.Label)
	assert.False(t, res.Node.Type.IsKnown())
	assert.Equal(t, DefaultIcon, IconFor(res.Node.Type))
}

func TestConnectAllowsParallelEdges(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	a, _ := c.Drop("llm", Point{}, nil)
	b, _ := c.Drop("output", Point{}, nil)

	e1, err := c.Connect(a.Node.ID, b.Node.ID)
	require.NoError(t, err)
	e2, err := c.Connect(a.Node.ID, b.Node.ID)
	require.NoError(t, err)

	assert.NotEqual(t, e1.ID, e2.ID)
	assert.NotEqual(t, b.Edge.ID, e1.ID)
	assert.Equal(t, 3, c.EdgeCount())
}

func TestConnectAllowsCycles(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	a, _ := c.Drop("llm", Point{}, nil)
	b, _ := c.Drop("tool", Point{}, nil)

	e, err := c.Connect(b.Node.ID, a.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Node.ID, e.Source)

	self, err := c.Connect(a.Node.ID, a.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, self.Source, self.Target)
}

func TestConnectUnknownNode(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	a, _ := c.Drop("llm", Point{}, nil)

	_, err := c.Connect(a.Node.ID, "ghost")
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	_, err = c.Connect("ghost", a.Node.ID)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.Equal(t, 0, c.EdgeCount())
}

func TestExportCounts(t *testing.T) {
	empty := New(nil).Export()
	assert.NotNil(t, empty.Nodes)
	assert.NotNil(t, empty.Edges)
	assert.Len(t, empty.Nodes, 0)
	assert.Len(t, empty.Edges, 0)

	c := New(&SequenceIDGenerator{})
	a, _ := c.Drop("llm", Point{}, nil)
	c.Drop("memory", Point{}, nil)
	last, _ := c.Drop("output", Point{}, nil)
	_, err := c.Connect(a.Node.ID, last.Node.ID)
	require.NoError(t, err)

	s := c.Export()
	assert.Len(t, s.Nodes, 3)
	assert.Len(t, s.Edges, 3)
	assert.Equal(t, []string{"llm-1", "memory-2", "output-3"}, []string{s.Nodes[0].ID, s.Nodes[1].ID, s.Nodes[2].ID})
}

func TestExportIsDetachedCopy(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	res, _ := c.Drop("llm", Point{}, nil)
	_, err := c.UpdateNodeConfig(res.Node.ID, "model", "claude")
	require.NoError(t, err)

	s := c.Export()
	s.Nodes[0].Config["model"] = "gemini"

	n, _ := c.Node(res.Node.ID)
	assert.Equal(t, "claude", n.Config["model"])
}

func TestUpdateNodeConfig(t *testing.T) {
	c := New(&SequenceIDGenerator{})
	llm, _ := c.Drop("llm", Point{}, nil)
	api, _ := c.Drop("api", Point{}, nil)
	other, _ := c.Drop("function", Point{}, nil)

	tests := []struct {
		name    string
		nodeID  string
		field   string
		value   string
		wantErr error
	}{
		{"llm model option", llm.Node.ID, "model", "openai", nil},
		{"llm model not an option", llm.Node.ID, "model", "llama", ErrInvalidFieldValue},
		{"llm unknown field", llm.Node.ID, "endpoint", "x", ErrUnknownField},
		{"api endpoint url", api.Node.ID, "endpoint", "https://api.example.com/v1", nil},
		{"api endpoint relative", api.Node.ID, "endpoint", "/v1", ErrInvalidFieldValue},
		{"api params json", api.Node.ID, "params", `{"q":"sol"}`, nil},
		{"api params broken json", api.Node.ID, "params", `{"q":`, ErrInvalidFieldValue},
		{"fallback default field", other.Node.ID, "default", "anything", nil},
		{"missing node", "ghost", "model", "openai", ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UpdateNodeConfig(tt.nodeID, tt.field, tt.value)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	n, _ := c.Node(llm.Node.ID)
	assert.Equal(t, "openai", n.Config["model"])

	cleared, err := c.UpdateNodeConfig(llm.Node.ID, "model", "")
	require.NoError(t, err)
	_, has := cleared.Config["model"]
	assert.False(t, has)
}
