package iso_test

import (
	"math"
	"testing"

	"github.com/isotranslate/iso/pkg/iso"
)

func TestTokenUsageAdd(t *testing.T) {
	var u iso.TokenUsage

	u.Add(iso.TokenUsage{
		Model:        "gpt-4o-realtime-preview-2024-12-17",
		TotalTokens:  100,
		InputTokens:  60,
		OutputTokens: 40,
		InputTokenDetails: iso.TokenDetails{
			TextTokens:  10,
			AudioTokens: 50,
		},
		OutputTokenDetails: iso.TokenDetails{
			TextTokens:  15,
			AudioTokens: 25,
		},
	})
	u.Add(iso.TokenUsage{
		Model:        "gpt-4o-realtime-preview-2024-12-17",
		TotalTokens:  50,
		InputTokens:  30,
		OutputTokens: 20,
		InputTokenDetails: iso.TokenDetails{
			TextTokens:   5,
			AudioTokens:  25,
			CachedTokens: 10,
			CachedTokensDetails: iso.CachedTokenDetails{
				TextTokens:  4,
				AudioTokens: 6,
			},
		},
	})

	if u.TotalTokens != 150 || u.InputTokens != 90 || u.OutputTokens != 60 {
		t.Errorf("totals = %d/%d/%d", u.TotalTokens, u.InputTokens, u.OutputTokens)
	}
	if u.InputTokenDetails.TextTokens != 15 || u.InputTokenDetails.AudioTokens != 75 {
		t.Errorf("input details = %+v", u.InputTokenDetails)
	}
	if u.InputTokenDetails.CachedTokensDetails.AudioTokens != 6 {
		t.Errorf("cached details = %+v", u.InputTokenDetails.CachedTokensDetails)
	}
}

func TestTokenUsageModelChangeResets(t *testing.T) {
	var u iso.TokenUsage
	u.Add(iso.TokenUsage{Model: "gpt-4o-realtime-preview-2024-12-17", TotalTokens: 100})
	u.Add(iso.TokenUsage{Model: "gemini-2.5-flash-preview-native-audio-dialog", TotalTokens: 30})

	if u.Model != "gemini-2.5-flash-preview-native-audio-dialog" {
		t.Errorf("model = %q", u.Model)
	}
	if u.TotalTokens != 30 {
		t.Errorf("total = %d, want 30 after reset", u.TotalTokens)
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCost(t *testing.T) {
	u := iso.TokenUsage{
		Model: "gpt-4o-realtime-preview-2024-12-17",
		InputTokenDetails: iso.TokenDetails{
			TextTokens:  1_000_000,
			AudioTokens: 1_000_000,
			CachedTokensDetails: iso.CachedTokenDetails{
				TextTokens:  500_000,
				AudioTokens: 500_000,
			},
		},
		OutputTokenDetails: iso.TokenDetails{
			TextTokens:  1_000_000,
			AudioTokens: 1_000_000,
		},
	}

	c := u.Cost()
	// Uncached halves at full rate, cached halves at the cached rate.
	if !approx(c.TextInput, 2.5) || !approx(c.TextCached, 1.25) {
		t.Errorf("text input costs = %v/%v", c.TextInput, c.TextCached)
	}
	if !approx(c.AudioInput, 20) || !approx(c.AudioCached, 1.25) {
		t.Errorf("audio input costs = %v/%v", c.AudioInput, c.AudioCached)
	}
	if !approx(c.TextOutput, 20) || !approx(c.AudioOutput, 80) {
		t.Errorf("output costs = %v/%v", c.TextOutput, c.AudioOutput)
	}
	if !approx(c.Total, 125) {
		t.Errorf("total = %v, want 125", c.Total)
	}
}

func TestCostUnknownModelIsZero(t *testing.T) {
	u := iso.TokenUsage{
		Model: "gemini-2.5-flash-preview-native-audio-dialog",
		InputTokenDetails: iso.TokenDetails{
			TextTokens:  1_000_000,
			AudioTokens: 1_000_000,
		},
	}
	if c := u.Cost(); c.Total != 0 {
		t.Errorf("total = %v, want 0 for model without published rates", c.Total)
	}
}

func TestRatesForMini(t *testing.T) {
	r := iso.RatesFor("gpt-4o-mini-realtime-preview")
	if r.TextInput != 0.6 || r.AudioOutput != 20 {
		t.Errorf("mini rates = %+v", r)
	}
}
