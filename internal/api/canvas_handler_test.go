package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"companionforge/internal/domain/canvas"
)

func createSession(t *testing.T, env *testEnv) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/v1/canvas/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var info struct {
		ID string `json:"id"`
	}
	data(t, rr, &info)
	require.NotEmpty(t, info.ID)
	return info.ID
}

func TestCanvasDropChain(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env)
	base := "/api/v1/canvas/sessions/" + id

	rr := env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "llm", "x": 100, "y": 100}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var first dropResponse
	data(t, rr, &first)
	require.NotNil(t, first.Node)
	assert.Equal(t, "llm-1", first.Node.ID)
	assert.Equal(t, "Llm", first.Node.Label)
	assert.Equal(t, canvas.Position{X: 100, Y: 100}, first.Node.Position)
	assert.Nil(t, first.Edge)

	rr = env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "memory", "x": 999, "y": 999}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var second dropResponse
	data(t, rr, &second)
	assert.Equal(t, canvas.Position{X: 450, Y: 150}, second.Node.Position)
	require.NotNil(t, second.Edge)
	assert.Equal(t, "ellm-1-memory-2", second.Edge.ID)
	assert.Equal(t, canvas.EdgeStyleSmoothStep, second.Edge.Style)
	assert.True(t, second.Edge.Animated)

	rr = env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "  ", "x": 1, "y": 1}, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var ignored dropResponse
	data(t, rr, &ignored)
	assert.True(t, ignored.Ignored)

	rr = env.do(t, http.MethodGet, base, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view sessionView
	data(t, rr, &view)
	assert.Equal(t, 2, view.Nodes)
	assert.Equal(t, 1, view.Edges)
	assert.Len(t, view.Workflow.Nodes, 2)
}

func TestCanvasDropWithViewport(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env)

	rr := env.do(t, http.MethodPost, "/api/v1/canvas/sessions/"+id+"/drop", map[string]interface{}{
		"type":      "api",
		"x":         300,
		"y":         200,
		"viewport":  map[string]float64{"x": 50, "y": 0, "zoom": 2},
		"container": map[string]float64{"left": 50, "top": 100},
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var res dropResponse
	data(t, rr, &res)
	assert.Equal(t, canvas.Position{X: 100, Y: 50}, res.Node.Position)
}

func TestCanvasConnectAndConfig(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env)
	base := "/api/v1/canvas/sessions/" + id
	env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "llm"}, "")
	env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "memory"}, "")

	rr := env.do(t, http.MethodPost, base+"/connect", connectRequest{Source: "llm-1", Target: "memory-2"}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var edge canvas.Edge
	data(t, rr, &edge)
	assert.Equal(t, "ellm-1-memory-2-2", edge.ID)

	rr = env.do(t, http.MethodPost, base+"/connect", connectRequest{Source: "llm-1", Target: "ghost"}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, base+"/nodes/llm-1/schema", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var schema canvas.Schema
	data(t, rr, &schema)
	assert.Equal(t, "model", schema.Fields[0].Name)

	rr = env.do(t, http.MethodPut, base+"/nodes/llm-1/config", updateConfigRequest{Field: "model", Value: "claude"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var node canvas.Node
	data(t, rr, &node)
	assert.Equal(t, "claude", node.Config["model"])

	rr = env.do(t, http.MethodPut, base+"/nodes/llm-1/config", updateConfigRequest{Field: "model", Value: "gpt-9"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = env.do(t, http.MethodPut, base+"/nodes/llm-1/config", updateConfigRequest{Field: "nope", Value: "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = env.do(t, http.MethodPut, base+"/nodes/ghost/config", updateConfigRequest{Field: "model", Value: "x"}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCanvasExportImport(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env)
	base := "/api/v1/canvas/sessions/" + id
	env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "prompt", "x": 10, "y": 20}, "")
	env.do(t, http.MethodPost, base+"/drop", map[string]interface{}{"type": "output"}, "")

	rr := env.do(t, http.MethodGet, base+"/export", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "workflow-"+id+".json")
	jsonDump := rr.Body.Bytes()

	rr = env.do(t, http.MethodGet, base+"/export?format=yaml", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var snap canvas.Snapshot
	require.NoError(t, yaml.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)

	rr = env.do(t, http.MethodPost, "/api/v1/canvas/import", jsonDump, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var info struct {
		ID    string `json:"id"`
		Nodes int    `json:"nodes"`
		Edges int    `json:"edges"`
	}
	data(t, rr, &info)
	assert.NotEqual(t, id, info.ID)
	assert.Equal(t, 2, info.Nodes)
	assert.Equal(t, 1, info.Edges)

	rr = env.do(t, http.MethodPost, "/api/v1/canvas/import", `{"nodes":[],"edges":[{"id":"e","source":"a","target":"b"}]}`, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/v1/canvas/import?format=yaml", "nodes: [", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCanvasSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/canvas/sessions/missing"},
		{http.MethodDelete, "/api/v1/canvas/sessions/missing"},
		{http.MethodGet, "/api/v1/canvas/sessions/missing/export"},
	} {
		rr := env.do(t, tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, tc.path)
	}
	rr := env.do(t, http.MethodPost, "/api/v1/canvas/sessions/missing/drop", map[string]string{"type": "llm"}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPaletteAndSchema(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/v1/palette", nil, "")
	var items []canvas.PaletteItem
	data(t, rr, &items)
	assert.Len(t, items, 10)

	rr = env.do(t, http.MethodGet, "/api/v1/palette/custom/schema", nil, "")
	var schema canvas.Schema
	data(t, rr, &schema)
	require.Len(t, schema.Fields, 1)
	assert.Equal(t, "default", schema.Fields[0].Name)
}
