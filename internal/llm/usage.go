package llm

// Cost is a monetary breakdown in USD.
type Cost struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cacheRead"`
	CacheWrite float64 `json:"cacheWrite"`
	Total      float64 `json:"total"`
}

// Usage records token counters and their derived cost.
//
// Providers report usage as cumulative snapshots, so counters are overwritten
// and the derived fields recomputed via Recompute; they are never summed.
type Usage struct {
	Input       int64 `json:"input"`
	Output      int64 `json:"output"`
	CacheRead   int64 `json:"cacheRead"`
	CacheWrite  int64 `json:"cacheWrite"`
	TotalTokens int64 `json:"totalTokens"`
	Cost        Cost  `json:"cost"`
}

// CalculateCost prices the four token counters of u against the model's per-million rates.
func CalculateCost(model Model, u Usage) Cost {
	c := Cost{
		Input:      float64(u.Input) * model.Cost.Input / 1_000_000,
		Output:     float64(u.Output) * model.Cost.Output / 1_000_000,
		CacheRead:  float64(u.CacheRead) * model.Cost.CacheRead / 1_000_000,
		CacheWrite: float64(u.CacheWrite) * model.Cost.CacheWrite / 1_000_000,
	}
	c.Total = c.Input + c.Output + c.CacheRead + c.CacheWrite
	return c
}

// Recompute derives TotalTokens and Cost from the raw counters.
func (u *Usage) Recompute(model Model) {
	u.TotalTokens = u.Input + u.Output + u.CacheRead + u.CacheWrite
	u.Cost = CalculateCost(model, *u)
}
