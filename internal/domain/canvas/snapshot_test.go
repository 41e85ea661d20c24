package canvas

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSample(t *testing.T) *Canvas {
	t.Helper()
	c := New(&SequenceIDGenerator{})
	a, _ := c.Drop("llm", Point{X: 10, Y: 20}, nil)
	c.Drop("memory", Point{}, nil)
	last, _ := c.Drop("api", Point{}, nil)
	_, err := c.Connect(a.Node.ID, last.Node.ID)
	require.NoError(t, err)
	_, err = c.UpdateNodeConfig(a.Node.ID, "model", "gemini")
	require.NoError(t, err)
	_, err = c.UpdateNodeConfig(last.Node.ID, "params", `{"limit":5}`)
	require.NoError(t, err)
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			orig := buildSample(t).Export()

			data, err := orig.Encode(f)
			require.NoError(t, err)

			parsed, err := ParseSnapshot(data, f)
			require.NoError(t, err)

			restored, err := Restore(parsed, &SequenceIDGenerator{})
			require.NoError(t, err)
			assert.Equal(t, orig, restored.Export())
		})
	}
}

func TestSnapshotJSONFieldNames(t *testing.T) {
	data, err := buildSample(t).Export().Encode(FormatJSON)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"id":"llm-1"`)
	assert.Contains(t, s, `"position":{"x":10,"y":20}`)
	assert.Contains(t, s, `"type":"smoothstep"`)
	assert.Contains(t, s, `"animated":true`)
	assert.Contains(t, s, `"source":"llm-1","target":"memory-2"`)
}

func TestRestoreContinuesChain(t *testing.T) {
	restored, err := Restore(buildSample(t).Export(), &ClockIDGenerator{Now: func() time.Time { return time.UnixMilli(7) }})
	require.NoError(t, err)

	res, ok := restored.Drop("output", Point{}, nil)
	require.True(t, ok)
	assert.Equal(t, "output-7", res.Node.ID)
	require.NotNil(t, res.Edge)
	assert.Equal(t, "api-3", res.Edge.Source)
	assert.Equal(t, Position{X: 10 + 3*350, Y: 20 + 3*50}, res.Node.Position)
}

func TestRestoreFillsDefaults(t *testing.T) {
	s := Snapshot{
		Nodes: []Node{{ID: "prompt-1", Type: NodeTypePrompt}, {ID: "tool-2", Type: NodeTypeTool}},
		Edges: []Edge{{ID: "eprompt-1-tool-2", Source: "prompt-1", Target: "tool-2"}},
	}
	c, err := Restore(s, nil)
	require.NoError(t, err)

	n, ok := c.Node("prompt-1")
	require.True(t, ok)
	assert.Equal(t, "Prompt", n.Label)
	assert.NotNil(t, n.Config)
	assert.Equal(t, EdgeStyleSmoothStep, c.Export().Edges[0].Style)
}

func TestRestoreRejectsInconsistentSnapshots(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "empty node id",
			snap: Snapshot{Nodes: []Node{{Type: NodeTypeLLM}}},
		},
		{
			name: "duplicate node id",
			snap: Snapshot{Nodes: []Node{{ID: "llm-1"}, {ID: "llm-1"}}},
		},
		{
			name: "dangling edge target",
			snap: Snapshot{
				Nodes: []Node{{ID: "llm-1"}},
				Edges: []Edge{{ID: "e1", Source: "llm-1", Target: "memory-9"}},
			},
		},
		{
			name: "dangling edge source",
			snap: Snapshot{
				Nodes: []Node{{ID: "llm-1"}},
				Edges: []Edge{{ID: "e1", Source: "memory-9", Target: "llm-1"}},
			},
		},
		{
			name: "empty edge id",
			snap: Snapshot{
				Nodes: []Node{{ID: "llm-1"}, {ID: "tool-2"}},
				Edges: []Edge{{Source: "llm-1", Target: "tool-2"}},
			},
		},
		{
			name: "duplicate edge id",
			snap: Snapshot{
				Nodes: []Node{{ID: "llm-1"}, {ID: "tool-2"}},
				Edges: []Edge{
					{ID: "e1", Source: "llm-1", Target: "tool-2"},
					{ID: "e1", Source: "tool-2", Target: "llm-1"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.snap, nil)
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "got %v", err)
		})
	}
}

func TestParseSnapshotErrors(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{"nodes":[`), FormatJSON)
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))

	_, err = ParseSnapshot([]byte("nodes: [\n  - id: {"), FormatYAML)
	assert.True(t, errors.Is(err, ErrInvalidSnapshot))
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, ParseFormat("YAML"))
	assert.Equal(t, FormatYAML, ParseFormat(" yml "))
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat(""))
	assert.Equal(t, FormatJSON, ParseFormat("toml"))
}
