package canvas

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaLookup(t *testing.T) {
	r := NewSchemaRegistry()

	llm := r.Lookup(NodeTypeLLM)
	f, ok := llm.Field("model")
	require.True(t, ok)
	assert.Equal(t, FieldKindSelect, f.Kind)
	assert.Len(t, f.Options, 3)

	fallback := r.Lookup(NodeTypeRetrieval)
	require.Len(t, fallback.Fields, 1)
	assert.Equal(t, "default", fallback.Fields[0].Name)
	assert.Equal(t, "Enter retrieval details", fallback.Fields[0].Placeholder)
}

func TestSchemaRegisterOverridesOnlyOwnRegistry(t *testing.T) {
	r := NewSchemaRegistry()
	r.Register(Schema{Type: NodeTypeTool, Fields: []Field{{Name: "name", Kind: FieldKindText}}})

	_, ok := r.Lookup(NodeTypeTool).Field("name")
	assert.True(t, ok)
	_, ok = DefaultSchemas().Lookup(NodeTypeTool).Field("name")
	assert.False(t, ok)

	c := New(&SequenceIDGenerator{})
	c.SetSchemas(r)
	res, _ := c.Drop("tool", Point{}, nil)
	_, err := c.UpdateNodeConfig(res.Node.ID, "name", "search")
	require.NoError(t, err)
}

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		ok    bool
	}{
		{"empty always ok", Field{Kind: FieldKindURL}, "", true},
		{"free text", Field{Kind: FieldKindText}, "anything at all", true},
		{"textarea", Field{Kind: FieldKindTextarea}, "line1\nline2", true},
		{"json object", Field{Kind: FieldKindJSON}, `{"a":[1,2]}`, true},
		{"json scalar", Field{Kind: FieldKindJSON}, `42`, true},
		{"json broken", Field{Kind: FieldKindJSON}, `{a:1}`, false},
		{"url https", Field{Kind: FieldKindURL}, "https://example.com/x?y=1", true},
		{"url without host", Field{Kind: FieldKindURL}, "mailto:a@b", false},
		{"url garbage", Field{Kind: FieldKindURL}, "not a url", false},
		{"select hit", Field{Kind: FieldKindSelect, Options: []FieldOption{{Value: "a"}}}, "a", true},
		{"select miss", Field{Kind: FieldKindSelect, Options: []FieldOption{{Value: "a"}}}, "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFieldValue)
			}
		})
	}
}

func TestPalette(t *testing.T) {
	items := Palette()
	require.Len(t, items, len(KnownNodeTypes))
	for i, item := range items {
		assert.Equal(t, KnownNodeTypes[i], item.Type)
		assert.Equal(t, item.Icon, IconFor(item.Type))
	}

	items[0].Label = "mutated"
	assert.Equal(t, "Language Model", Palette()[0].Label)
}

func TestNodeTypeLabel(t *testing.T) {
	assert.Equal(t, "Llm", NodeTypeLLM.Label())
	assert.Equal(t, "Auth", NodeTypeAuth.Label())
	assert.Equal(t, "", NodeType("").Label())
	assert.True(t, NodeTypeOutput.IsKnown())
	assert.False(t, NodeType("LLM").IsKnown())
}

func TestClockIDGeneratorMonotonic(t *testing.T) {
	g := &ClockIDGenerator{Now: func() time.Time { return time.UnixMilli(500) }}
	assert.Equal(t, "llm-500", g.NodeID(NodeTypeLLM))
	assert.Equal(t, "llm-501", g.NodeID(NodeTypeLLM))
	assert.Equal(t, "tool-502", g.NodeID(NodeTypeTool))
}

func TestIDGeneratorsUniqueUnderConcurrency(t *testing.T) {
	for _, kind := range []string{"clock", "sequence", "uuid"} {
		t.Run(kind, func(t *testing.T) {
			g := NewIDGenerator(kind)
			var (
				mu   sync.Mutex
				seen = make(map[string]struct{})
				wg   sync.WaitGroup
			)
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						id := g.NodeID(NodeTypeAgent)
						mu.Lock()
						seen[id] = struct{}{}
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Len(t, seen, 400)
			for id := range seen {
				assert.True(t, strings.HasPrefix(id, "agent-"))
			}
		})
	}
}

func TestViewportProjector(t *testing.T) {
	assert.Equal(t, Position{X: 5, Y: 6}, IdentityProjector.Project(Point{X: 5, Y: 6}))

	p := ViewportProjector{Viewport: Viewport{X: -100, Y: 0, Zoom: 0.5}}
	assert.Equal(t, Position{X: 400, Y: 200}, p.Project(Point{X: 100, Y: 100}))

	zeroZoom := ViewportProjector{Viewport: Viewport{Zoom: 0}}
	assert.Equal(t, Position{X: 3, Y: 4}, zeroZoom.Project(Point{X: 3, Y: 4}))
}
