package domain

import (
	"fmt"
	"testing"
)

func TestAppendTurnBoundsHistory(t *testing.T) {
	var ctx SessionContext
	for i := 0; i < 12; i++ {
		ctx.AppendTurn(TurnEntry{UserMessage: fmt.Sprintf("msg %d", i)}, 10)
	}

	if len(ctx.History) != 10 {
		t.Fatalf("history length = %d, want 10", len(ctx.History))
	}
	if ctx.History[0].UserMessage != "msg 2" {
		t.Errorf("oldest entry = %q, want msg 2", ctx.History[0].UserMessage)
	}
	if ctx.History[9].UserMessage != "msg 11" {
		t.Errorf("newest entry = %q, want msg 11", ctx.History[9].UserMessage)
	}
}

func TestAppendTurnUnbounded(t *testing.T) {
	var ctx SessionContext
	for i := 0; i < 5; i++ {
		ctx.AppendTurn(TurnEntry{}, 0)
	}
	if len(ctx.History) != 5 {
		t.Errorf("history length = %d, want 5 with no capacity", len(ctx.History))
	}
}
