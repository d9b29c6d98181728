package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestCandidateSymbolsPrefersSuggestedTokens(t *testing.T) {
	t.Parallel()

	p := ParsedStrategy{
		Assets:          []string{"ETH", "CBBTC"},
		SuggestedTokens: []string{"DEGEN", "TOSHI"},
	}
	got := p.CandidateSymbols()
	if len(got) != 2 || got[0] != "DEGEN" {
		t.Errorf("candidates = %v, want suggested tokens", got)
	}

	p.SuggestedTokens = nil
	got = p.CandidateSymbols()
	if len(got) != 2 || got[0] != "ETH" {
		t.Errorf("candidates = %v, want assets fallback", got)
	}
}

func TestErrorKindClassification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want ErrorKind
	}{
		{Validationf("bad input %d", 7), KindValidation},
		{Conflictf("taken"), KindConflict},
		{NotFoundf("missing"), KindNotFound},
		{StoreUnavailable(errors.New("dial refused")), KindStoreUnavailable},
		{LLMUpstream(errors.New("429")), KindLLMUpstream},
		{PriceUpstream(errors.New("502")), KindPriceUpstream},
		{Internalf("boom"), KindInternal},
		{errors.New("plain"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) must be empty")
	}
}

func TestErrorKindSurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("join round: %w", Conflictf("round full"))
	if !IsKind(err, KindConflict) {
		t.Errorf("wrapped conflict not detected: %v", err)
	}
	if IsKind(err, KindValidation) {
		t.Error("wrong kind matched")
	}
}

func TestStoreUnavailableUnwraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := StoreUnavailable(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}
