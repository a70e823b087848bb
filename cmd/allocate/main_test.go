package main

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestParse(t *testing.T) {
	id := uuid.New().String()
	cases := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{name: "batch", opts: options{runBatch: true}},
		{name: "dropout", opts: options{dropoutID: id, initiatedBy: "student"}},
		{name: "dropout bad initiator", opts: options{dropoutID: id, initiatedBy: "alien"}, wantErr: true},
		{name: "dropout bad id", opts: options{dropoutID: "x", initiatedBy: "SYSTEM"}, wantErr: true},
		{name: "accept", opts: options{acceptID: id}},
		{name: "explain missing position", opts: options{explain: true, candidateID: id}, wantErr: true},
		{name: "explain", opts: options{explain: true, candidateID: id, positionID: id}},
	}
	for _, tc := range cases {
		op, err := parse(tc.opts)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil || op == nil {
			t.Fatalf("%s: unexpected err=%v op=%v", tc.name, err, op != nil)
		}
	}

	if _, err := parse(options{}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
