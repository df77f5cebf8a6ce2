package awareness

import (
	"testing"
	"time"
)

func TestNeedsRefreshWhenEmpty(t *testing.T) {
	c := NewCache(0)
	if !c.NeedsRefresh() {
		t.Error("empty cache does not need refresh")
	}
}

func TestUpdateClearsStaleness(t *testing.T) {
	c := NewCache(0)
	c.Invalidate()

	c.Update(&Snapshot{Summary: "3 files, 1 directory", Tokens: 8, FetchedAt: time.Now()})
	if c.NeedsRefresh() {
		t.Error("fresh snapshot reported as needing refresh")
	}
	if c.IsStale() {
		t.Error("stale flag survived Update")
	}
}

func TestInvalidateSetsStaleAndBumpsVersionByOne(t *testing.T) {
	c := NewCache(0)
	c.Update(&Snapshot{Summary: "snapshot", FetchedAt: time.Now()})

	before := c.Version()
	c.Invalidate()

	if !c.IsStale() {
		t.Error("Invalidate did not set staleness")
	}
	if got := c.Version(); got != before+1 {
		t.Errorf("version after Invalidate = %d, want %d", got, before+1)
	}
	if !c.NeedsRefresh() {
		t.Error("NeedsRefresh false immediately after Invalidate")
	}
}

func TestBumpDoesNotInvalidate(t *testing.T) {
	c := NewCache(0)
	c.Update(&Snapshot{Summary: "snapshot", FetchedAt: time.Now()})

	before := c.Version()
	c.Bump()

	if got := c.Version(); got != before+1 {
		t.Errorf("version after Bump = %d, want %d", got, before+1)
	}
	if c.NeedsRefresh() {
		t.Error("Bump invalidated the snapshot")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Update(&Snapshot{Summary: "snapshot", FetchedAt: time.Now().Add(-time.Second)})

	if !c.NeedsRefresh() {
		t.Error("snapshot older than TTL not reported for refresh")
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	c := NewCache(0)
	first := &Snapshot{Summary: "first", FetchedAt: time.Now()}
	second := &Snapshot{Summary: "second", FetchedAt: time.Now()}

	c.Update(first)
	c.Update(second)

	if got := c.Snapshot(); got != second {
		t.Errorf("Snapshot() = %+v, want the replacement", got)
	}
}
