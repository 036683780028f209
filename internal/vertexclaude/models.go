package vertexclaude

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/florianilch/claudine-vertex/internal/llm"
)

//go:embed models.json
var modelsJSON []byte

// models decodes the embedded table once. A malformed table is a build defect.
var models = sync.OnceValue(func() []llm.Model {
	var table []llm.Model
	if err := json.Unmarshal(modelsJSON, &table); err != nil {
		panic(fmt.Errorf("decode embedded models.json: %w", err))
	}
	for i := range table {
		table[i].API = API
		table[i].Provider = ProviderName
	}
	return table
})

// Models returns the Claude models served on Vertex AI.
func Models() []llm.Model {
	return slices.Clone(models())
}

// LookupModel returns the model with the given Vertex AI id.
func LookupModel(id string) (llm.Model, bool) {
	i := slices.IndexFunc(models(), func(m llm.Model) bool { return m.ID == id })
	if i < 0 {
		return llm.Model{}, false
	}
	return models()[i], true
}
