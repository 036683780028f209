package llm

import "slices"

// Modality is an input type a model accepts.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// ModelCost holds USD prices per million tokens.
type ModelCost struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cacheRead"`
	CacheWrite float64 `json:"cacheWrite"`
}

// Model is an immutable capability and price descriptor.
type Model struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	API           string     `json:"api"`
	Provider      string     `json:"provider"`
	Reasoning     bool       `json:"reasoning"`
	Input         []Modality `json:"input"`
	Cost          ModelCost  `json:"cost"`
	ContextWindow int64      `json:"contextWindow"`
	MaxTokens     int64      `json:"maxTokens"`
}

// Accepts reports whether the model accepts the given input modality.
func (m Model) Accepts(modality Modality) bool {
	return slices.Contains(m.Input, modality)
}
