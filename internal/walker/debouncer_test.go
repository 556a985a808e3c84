package walker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_SingleEvent_PassesThrough(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify, Timestamp: time.Now()})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 1)
		assert.Equal(t, "a.go", batch[0].Path)
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for debounced batch")
	}
}

func TestDebouncer_CreateThenModify_CoalescesToCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "a.go", Operation: OpModify, Timestamp: time.Now()})

	batch := <-d.Output()
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDelete_CancelsOut(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpCreate, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "a.go", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "b.go", Operation: OpModify, Timestamp: time.Now()})

	batch := <-d.Output()
	require.Len(t, batch, 1)
	assert.Equal(t, "b.go", batch[0].Path)
}

func TestDebouncer_ModifyThenDelete_CoalescesToDelete(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "a.go", Operation: OpDelete, Timestamp: time.Now()})

	batch := <-d.Output()
	require.Len(t, batch, 1)
	assert.Equal(t, OpDelete, batch[0].Operation)
}

func TestDebouncer_DeleteThenCreate_CoalescesToModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpDelete, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "a.go", Operation: OpCreate, Timestamp: time.Now()})

	batch := <-d.Output()
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_DistinctPaths_EmitSeparately(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "a.go", Operation: OpModify, Timestamp: time.Now()})
	d.Add(FileEvent{Path: "b.go", Operation: OpCreate, Timestamp: time.Now()})

	batch := <-d.Output()
	assert.Len(t, batch, 2)
}

func TestDebouncer_Stop_ClosesOutputAndIgnoresFurtherAdds(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Stop() // idempotent

	d.Add(FileEvent{Path: "a.go", Operation: OpModify})

	_, ok := <-d.Output()
	assert.False(t, ok, "expected output channel to be closed")
}
