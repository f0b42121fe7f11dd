package types

import "math"

type UsageTotals struct {
	NonCachedInputTokens  uint64 `json:"non_cached_input_tokens"`
	CachedInputTokens     uint64 `json:"cached_input_tokens"`
	OutputTokens          uint64 `json:"output_tokens"`
	ReasoningOutputTokens uint64 `json:"reasoning_output_tokens"`
	TotalTokens           uint64 `json:"total_tokens"`
}

// Add folds other into u. Counters saturate at the maximum rather than wrap.
func (u *UsageTotals) Add(other UsageTotals) {
	u.NonCachedInputTokens = saturatingAdd(u.NonCachedInputTokens, other.NonCachedInputTokens)
	u.CachedInputTokens = saturatingAdd(u.CachedInputTokens, other.CachedInputTokens)
	u.OutputTokens = saturatingAdd(u.OutputTokens, other.OutputTokens)
	u.ReasoningOutputTokens = saturatingAdd(u.ReasoningOutputTokens, other.ReasoningOutputTokens)
	u.TotalTokens = saturatingAdd(u.TotalTokens, other.TotalTokens)
}

func (u UsageTotals) IsZero() bool {
	return u == UsageTotals{}
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
