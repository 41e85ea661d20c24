package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"companionforge/internal/domain/companion"
)

func TestGallery(t *testing.T) {
	env := newTestEnv(t)

	var agents []companion.Agent
	data(t, env.do(t, http.MethodGet, "/api/v1/gallery", nil, ""), &agents)
	assert.Len(t, agents, 8)

	var agent companion.Agent
	data(t, env.do(t, http.MethodGet, "/api/v1/gallery/2", nil, ""), &agent)
	assert.Equal(t, "FitnessAI", agent.Name)
	assert.Equal(t, "$FIT", agent.Ticker)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/gallery/99", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/gallery/abc", nil, "").Code)

	var catalog companion.Catalog
	data(t, env.do(t, http.MethodGet, "/api/v1/catalog", nil, ""), &catalog)
	assert.Len(t, catalog.Frameworks, 3)
	assert.Len(t, catalog.LaunchTypes, 4)
}
