package domain

import (
	"testing"

	"leadflow_backend/platform/apperr"
)

func TestFixedPolicyAllowsForwardMoves(t *testing.T) {
	policy := FixedEnumPolicy{}

	allowed := []struct{ from, to Status }{
		{StatusNew, StatusInterviewScheduled},
		{StatusNew, StatusRejected},
		{StatusInterviewScheduled, StatusCompleted},
		{StatusInterviewScheduled, StatusRejected},
		{StatusInterviewScheduled, StatusNew},
	}
	for _, tc := range allowed {
		if err := policy.Validate(tc.from, tc.to); err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
		}
	}
}

func TestFixedPolicyRejectsSkippingInterview(t *testing.T) {
	err := FixedEnumPolicy{}.Validate(StatusNew, StatusCompleted)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestFixedPolicyTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusRejected} {
		if next := AllowedNext(terminal); len(next) != 0 {
			t.Errorf("expected %s to be terminal, got exits %v", terminal, next)
		}
		for _, to := range AllStatuses {
			if err := (FixedEnumPolicy{}).Validate(terminal, to); err == nil {
				t.Errorf("expected %s -> %s to be rejected", terminal, to)
			}
		}
	}
}

func TestFixedPolicyRejectsSelfTransition(t *testing.T) {
	err := FixedEnumPolicy{}.Validate(StatusNew, StatusNew)
	if !apperr.Is(err, apperr.KindInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestFixedPolicyRejectsUnknownStatus(t *testing.T) {
	err := FixedEnumPolicy{}.Validate(StatusNew, Status("archived"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFreePolicyAllowsAnyDistinctMove(t *testing.T) {
	policy := FreeStagePolicy{}

	if err := policy.Validate(StatusCompleted, StatusNew); err != nil {
		t.Fatalf("expected free policy to allow completed -> new, got %v", err)
	}
	if err := policy.Validate(StatusNew, StatusNew); err == nil {
		t.Fatal("expected free policy to reject a self-move")
	}
}

func TestPolicyForMode(t *testing.T) {
	if got := PolicyForMode("free").Name(); got != "free" {
		t.Errorf("expected free policy, got %q", got)
	}
	if got := PolicyForMode("fixed").Name(); got != "fixed" {
		t.Errorf("expected fixed policy, got %q", got)
	}
	if got := PolicyForMode("").Name(); got != "fixed" {
		t.Errorf("expected fallback to fixed policy, got %q", got)
	}
}
