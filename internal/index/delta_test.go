package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestComputeDeltaSizeMtimeUnchanged checks that a stored file and a
// current file with identical size and mtime (neither side carrying a
// content hash) classify as unchanged.
func TestComputeDeltaSizeMtimeUnchanged(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	s := NewState()
	s.Files["/p.txt"] = FileState{Size: 100, Mtime: mtime, HasMtime: true}

	current := []FileInfo{{Path: "/p.txt", Size: 100, Mtime: mtime.UnixNano(), HasMtime: true}}
	deltas := ComputeDelta(s, current)

	assertOnlyStatus(t, deltas, "/p.txt", StatusUnchanged)
}

func TestComputeDeltaPartitionsDisjointly(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	s := NewState()
	s.Files["/unchanged.txt"] = FileState{Size: 10, Mtime: mtime, HasMtime: true}
	s.Files["/modified.txt"] = FileState{Size: 10, Mtime: mtime, HasMtime: true}
	s.Files["/deleted.txt"] = FileState{Size: 5}

	current := []FileInfo{
		{Path: "/unchanged.txt", Size: 10, Mtime: mtime.UnixNano(), HasMtime: true},
		{Path: "/modified.txt", Size: 20, Mtime: mtime.UnixNano(), HasMtime: true},
		{Path: "/new.txt", Size: 7},
	}
	deltas := ComputeDelta(s, current)

	byPath := make(map[string]Status, len(deltas))
	for _, d := range deltas {
		byPath[d.Path] = d.Status
	}

	assert.Equal(t, StatusUnchanged, byPath["/unchanged.txt"])
	assert.Equal(t, StatusModified, byPath["/modified.txt"])
	assert.Equal(t, StatusNew, byPath["/new.txt"])
	assert.Equal(t, StatusDeleted, byPath["/deleted.txt"])

	// union of current and stored paths, no path missing or duplicated
	union := map[string]bool{
		"/unchanged.txt": true, "/modified.txt": true,
		"/new.txt": true, "/deleted.txt": true,
	}
	assert.Len(t, deltas, len(union))
}

func TestComputeDeltaHashEqualityOverridesSizeMtime(t *testing.T) {
	s := NewState()
	s.Files["/p.txt"] = FileState{Size: 10, ContentHash: "abc"}
	// size/mtime disagree but the hash matches: still unchanged.
	current := []FileInfo{{Path: "/p.txt", Size: 99, ContentHash: "abc"}}

	deltas := ComputeDelta(s, current)
	assertOnlyStatus(t, deltas, "/p.txt", StatusUnchanged)
}

func TestComputeDeltaHashMismatchIsModified(t *testing.T) {
	s := NewState()
	s.Files["/p.txt"] = FileState{Size: 10, ContentHash: "abc"}
	current := []FileInfo{{Path: "/p.txt", Size: 10, ContentHash: "def"}}

	deltas := ComputeDelta(s, current)
	assertOnlyStatus(t, deltas, "/p.txt", StatusModified)
}

func TestReconcileActionsAndCounts(t *testing.T) {
	s := NewState()
	s.Files["/modified.txt"] = FileState{Size: 10, ContentHash: "old"}
	s.Files["/deleted.txt"] = FileState{Size: 5}

	current := []FileInfo{
		{Path: "/modified.txt", Size: 10, ContentHash: "new"},
		{Path: "/new.txt", Size: 7},
	}
	res := Reconcile(s, current)

	byPath := make(map[string]ActionKind, len(res.Actions))
	for _, a := range res.Actions {
		byPath[a.Path] = a.Kind
	}
	assert.Equal(t, ActionReindex, byPath["/modified.txt"])
	assert.Equal(t, ActionIndex, byPath["/new.txt"])
	assert.Equal(t, ActionRemoveOrphan, byPath["/deleted.txt"])

	assert.Equal(t, 1, res.Counts[ActionReindex])
	assert.Equal(t, 1, res.Counts[ActionIndex])
	assert.Equal(t, 1, res.Counts[ActionRemoveOrphan])
}

func TestReconcileHashMatchShortCircuitsDespiteSizeMtimeDrift(t *testing.T) {
	s := NewState()
	s.Files["/p.txt"] = FileState{Size: 10, ContentHash: "same"}
	current := []FileInfo{{Path: "/p.txt", Size: 999, ContentHash: "same"}}

	res := Reconcile(s, current)
	assert.Len(t, res.Actions, 1)
	assert.Equal(t, ActionSkipUnchanged, res.Actions[0].Kind)
}

func assertOnlyStatus(t *testing.T, deltas []Delta, path string, want Status) {
	t.Helper()
	for _, d := range deltas {
		if d.Path == path {
			assert.Equal(t, want, d.Status)
			return
		}
	}
	t.Fatalf("no delta found for %s", path)
}
