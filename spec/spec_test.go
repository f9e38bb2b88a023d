package spec

import (
	"errors"
	"testing"
)

func TestMessageSchema(t *testing.T) {
	for _, tc := range []struct {
		msg  Message
		want string
	}{
		{NewRestartMessage("actors/nav.h5"),
			`{"channel":"evaluateActor","data":{"action":"restart","actorPath":"actors/nav.h5"}}`},
		{NewEnablePolicySwitchingMessage("actors/hover.h5", 0.3),
			`{"channel":"evaluateActor","data":{"action":"enablePolicySwitching","hoverActorPath":"actors/hover.h5","threshold":0.3}}`},
		{NewDisablePolicySwitchingMessage(),
			`{"channel":"evaluateActor","data":{"action":"disablePolicySwitching"}}`},
	} {
		b, err := tc.msg.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != tc.want {
			t.Errorf("got %s, want %s", b, tc.want)
		}
	}
}

func TestThresholdInRange(t *testing.T) {
	for v, want := range map[float64]bool{0.05: false, 0.1: true, 0.5: true, 2.0: true, 2.01: false} {
		if ThresholdInRange(v) != want {
			t.Errorf("ThresholdInRange(%v) = %v", v, !want)
		}
	}
}

func TestFormatting(t *testing.T) {
	if FormatFloat(0.6) != "0.6" || FormatFloat(float64(float32(0.6))) != "0.6" || FormatFloat(1) != "1" {
		t.Fatalf("unexpected float formatting %s %s", FormatFloat(0.6), FormatFloat(1))
	}
	if Truncate("héllo", 2) != "hé" || Truncate("ok", 100) != "ok" {
		t.Fatal("unexpected truncation")
	}
	if a, b := NewRunID(), NewRunID(); a == "" || a == b {
		t.Fatalf("run ids %q %q", a, b)
	}
}

func TestSentence(t *testing.T) {
	if got := Sentence(ErrConflictingModes); got != "Cannot specify both --enable and --disable" {
		t.Fatalf("got %q", got)
	}
	if got := Sentence(errors.New("")); got != "" {
		t.Fatalf("got %q", got)
	}
}
