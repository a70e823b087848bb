package ctxutil

import (
	"context"
	"testing"
)

func TestLogFields(t *testing.T) {
	if got := LogFields(context.Background(), "k", 1); len(got) != 2 {
		t.Fatalf("bare context: %v", got)
	}
	ctx := WithRequestMeta(context.Background(), RequestMeta{TraceID: "t1", RequestID: "r1"})
	got := LogFields(ctx, "batch_id", "b")
	want := []any{"trace_id", "t1", "request_id", "r1", "batch_id", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d: got %v want %v", i, got[i], want[i])
		}
	}
	if m, ok := RequestMetaFrom(ctx); !ok || m.RequestID != "r1" {
		t.Fatalf("RequestMetaFrom: %+v %v", m, ok)
	}
}
