package iso

import "strings"

// CachedTokenDetails splits cached input tokens by modality.
type CachedTokenDetails struct {
	TextTokens  int64 `json:"text_tokens" msgpack:"text_tokens"`
	AudioTokens int64 `json:"audio_tokens" msgpack:"audio_tokens"`
}

// TokenDetails splits a token count by modality.
type TokenDetails struct {
	TextTokens          int64              `json:"text_tokens" msgpack:"text_tokens"`
	AudioTokens         int64              `json:"audio_tokens" msgpack:"audio_tokens"`
	CachedTokens        int64              `json:"cached_tokens" msgpack:"cached_tokens"`
	CachedTokensDetails CachedTokenDetails `json:"cached_tokens_details" msgpack:"cached_tokens_details"`
}

// TokenUsage is the cumulative token consumption of a session. Counters
// reset when the model changes or on explicit clear.
type TokenUsage struct {
	Model              string       `json:"model" msgpack:"model"`
	TotalTokens        int64        `json:"total_tokens" msgpack:"total_tokens"`
	InputTokens        int64        `json:"input_tokens" msgpack:"input_tokens"`
	OutputTokens       int64        `json:"output_tokens" msgpack:"output_tokens"`
	InputTokenDetails  TokenDetails `json:"input_token_details" msgpack:"input_token_details"`
	OutputTokenDetails TokenDetails `json:"output_token_details" msgpack:"output_token_details"`
}

// Add accumulates one response's reported usage. A model change resets
// the counters before adding.
func (u *TokenUsage) Add(delta TokenUsage) {
	if delta.Model != "" && delta.Model != u.Model {
		*u = TokenUsage{Model: delta.Model}
	}

	u.TotalTokens += delta.TotalTokens
	u.InputTokens += delta.InputTokens
	u.OutputTokens += delta.OutputTokens

	u.InputTokenDetails.TextTokens += delta.InputTokenDetails.TextTokens
	u.InputTokenDetails.AudioTokens += delta.InputTokenDetails.AudioTokens
	u.InputTokenDetails.CachedTokens += delta.InputTokenDetails.CachedTokens
	u.InputTokenDetails.CachedTokensDetails.TextTokens += delta.InputTokenDetails.CachedTokensDetails.TextTokens
	u.InputTokenDetails.CachedTokensDetails.AudioTokens += delta.InputTokenDetails.CachedTokensDetails.AudioTokens

	u.OutputTokenDetails.TextTokens += delta.OutputTokenDetails.TextTokens
	u.OutputTokenDetails.AudioTokens += delta.OutputTokenDetails.AudioTokens
}

// TokenRates is the dollar cost per million tokens, by modality.
type TokenRates struct {
	TextInput   float64
	TextCached  float64
	TextOutput  float64
	AudioInput  float64
	AudioCached float64
	AudioOutput float64
}

var (
	ratesGPT4o = TokenRates{
		TextInput: 5, TextCached: 2.5, TextOutput: 20,
		AudioInput: 40, AudioCached: 2.5, AudioOutput: 80,
	}
	ratesGPT4oMini = TokenRates{
		TextInput: 0.6, TextCached: 0.3, TextOutput: 2.4,
		AudioInput: 10, AudioCached: 0.3, AudioOutput: 20,
	}
)

// RatesFor returns the per-million-token rates for a model. Models with
// no published realtime pricing get zero rates.
func RatesFor(model string) TokenRates {
	switch {
	case strings.Contains(model, "gpt-4o-mini"):
		return ratesGPT4oMini
	case strings.Contains(model, "gpt-4o"):
		return ratesGPT4o
	}
	return TokenRates{}
}

// CostBreakdown is the estimated dollar cost of accumulated usage.
type CostBreakdown struct {
	TextInput   float64 `json:"text_input"`
	TextCached  float64 `json:"text_cached"`
	TextOutput  float64 `json:"text_output"`
	AudioInput  float64 `json:"audio_input"`
	AudioCached float64 `json:"audio_cached"`
	AudioOutput float64 `json:"audio_output"`
	Total       float64 `json:"total"`
}

// Cost estimates the dollar cost of the accumulated usage at the model's
// rates. Cached tokens are billed at the cached rate; the uncached input
// counts are the modality totals minus their cached share.
func (u TokenUsage) Cost() CostBreakdown {
	r := RatesFor(u.Model)
	const m = 1e6

	in := u.InputTokenDetails
	out := u.OutputTokenDetails

	var c CostBreakdown
	c.TextInput = float64(in.TextTokens-in.CachedTokensDetails.TextTokens) / m * r.TextInput
	c.TextCached = float64(in.CachedTokensDetails.TextTokens) / m * r.TextCached
	c.TextOutput = float64(out.TextTokens) / m * r.TextOutput
	c.AudioInput = float64(in.AudioTokens-in.CachedTokensDetails.AudioTokens) / m * r.AudioInput
	c.AudioCached = float64(in.CachedTokensDetails.AudioTokens) / m * r.AudioCached
	c.AudioOutput = float64(out.AudioTokens) / m * r.AudioOutput
	c.Total = c.TextInput + c.TextCached + c.TextOutput + c.AudioInput + c.AudioCached + c.AudioOutput
	return c
}
