package proxy

import (
	"net/http"
	"slices"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

// modelCatalog indexes the served models by id.
type modelCatalog struct {
	models []llm.Model
	byID   map[string]llm.Model
}

func newModelCatalog(models []llm.Model) *modelCatalog {
	c := &modelCatalog{
		models: slices.Clone(models),
		byID:   make(map[string]llm.Model, len(models)),
	}
	for _, m := range models {
		c.byID[m.ID] = m
	}
	return c
}

func (c *modelCatalog) lookup(id string) (llm.Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// modelListResponse is the body of GET /v1/models.
type modelListResponse struct {
	Object string      `json:"object"`
	Data   []llm.Model `json:"data"`
}

// modelsHandler returns the static model table with capabilities and prices.
// Vertex AI has no model listing endpoint for partner models.
func modelsHandler(catalog *modelCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, modelListResponse{Object: "list", Data: catalog.models}, http.StatusOK)
	}
}
