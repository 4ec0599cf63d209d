package web

import (
	"fmt"
	"testing"
)

// TestBatchRegistry_ClaimOnce tests that a batch ID can be claimed again only after release.
func TestBatchRegistry_ClaimOnce(t *testing.T) {
	b := newBatchRegistry()
	if !b.claim("b1") {
		t.Fatal("first claim must succeed")
	}
	if b.claim("b1") {
		t.Error("pending batch claimed twice")
	}
	if _, sending, _ := b.lookup("b1"); !sending {
		t.Error("pending batch must report sending")
	}

	b.release("b1")
	if !b.claim("b1") {
		t.Fatal("released batch must be claimable")
	}
	b.finish("b1", batchResult{Subject: "Hi"})
	if b.claim("b1") {
		t.Error("finished batch claimed again")
	}
	if res, _, ok := b.lookup("b1"); !ok || res.Subject != "Hi" {
		t.Errorf("lookup = %+v, %v", res, ok)
	}
}

// TestBatchRegistry_EvictsOldest tests that only the newest results stay viewable.
func TestBatchRegistry_EvictsOldest(t *testing.T) {
	b := newBatchRegistry()
	for i := 0; i <= maxBatchResults; i++ {
		id := fmt.Sprintf("b%d", i)
		b.claim(id)
		b.finish(id, batchResult{})
	}
	if _, _, ok := b.lookup("b0"); ok {
		t.Error("oldest result should be evicted")
	}
	if _, _, ok := b.lookup(fmt.Sprintf("b%d", maxBatchResults)); !ok {
		t.Error("newest result missing")
	}
}

// TestValidBatchID tests which posted batch IDs are trusted.
func TestValidBatchID(t *testing.T) {
	for id, want := range map[string]bool{
		"batch-1":                              true,
		"3f2b8c1e-9d4a-4e2b-8f00-0a1b2c3d4e5f": true,
		"":                                     false,
		"../audit":                             false,
		"a b":                                  false,
	} {
		if got := validBatchID(id); got != want {
			t.Errorf("validBatchID(%q) = %v, want %v", id, got, want)
		}
	}
}
