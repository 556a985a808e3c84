package fanout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NoSubscribers(t *testing.T) {
	f := New()
	assert.Equal(t, 0, f.SubscriberCount())
	assert.Equal(t, StatusSnapshot{}, f.CurrentStatus())
}

func TestSubscribe_DeliversStatusSnapshotImmediately(t *testing.T) {
	f := New()
	f.UpdateStatus(StatusSnapshot{Stage: "embedding", FilesTotal: 10})

	events, cancel := f.Subscribe(4)
	defer cancel()

	select {
	case evt := <-events:
		require.Equal(t, KindStatusSnapshot, evt.Kind)
		require.NotNil(t, evt.Status)
		assert.Equal(t, "embedding", evt.Status.Stage)
		assert.Equal(t, 10, evt.Status.FilesTotal)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate status snapshot on subscribe")
	}
}

func TestSubscribe_IncrementsAndCancelDecrementsCount(t *testing.T) {
	f := New()
	assert.Equal(t, 0, f.SubscriberCount())

	_, cancel := f.Subscribe(4)
	assert.Equal(t, 1, f.SubscriberCount())

	cancel()
	assert.Equal(t, 0, f.SubscriberCount())
}

func TestCancel_ClosesChannel(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(4)
	<-events // drain the initial status snapshot

	cancel()

	_, ok := <-events
	assert.False(t, ok, "channel should be closed after cancel")
}

func TestCancel_IsIdempotent(t *testing.T) {
	f := New()
	_, cancel := f.Subscribe(4)
	assert.NotPanics(t, func() {
		cancel()
		cancel()
	})
}

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	f := New()
	a, cancelA := f.Subscribe(4)
	defer cancelA()
	b, cancelB := f.Subscribe(4)
	defer cancelB()

	<-a // drain initial snapshot
	<-b

	f.Publish(Event{Kind: KindFileChanged, FileChanged: &FileChanged{Path: "x.go", Operation: "modified"}})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			require.Equal(t, KindFileChanged, evt.Kind)
			assert.Equal(t, "x.go", evt.FileChanged.Path)
		case <-time.After(time.Second):
			t.Fatal("expected event to be delivered to every subscriber")
		}
	}
}

func TestPublish_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	f := New()
	slow, cancelSlow := f.Subscribe(1)
	defer cancelSlow()
	fast, cancelFast := f.Subscribe(4)
	defer cancelFast()

	<-slow
	<-fast

	// Fill the slow subscriber's buffer so further sends would block if
	// Publish used a blocking send.
	f.Publish(Event{Kind: KindFileChanged, FileChanged: &FileChanged{Path: "a.go"}})
	<-fast // the fast subscriber received a.go as well

	done := make(chan struct{})
	go func() {
		f.Publish(Event{Kind: KindFileChanged, FileChanged: &FileChanged{Path: "b.go"}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}

	select {
	case evt := <-fast:
		assert.Equal(t, "b.go", evt.FileChanged.Path)
	case <-time.After(time.Second):
		t.Fatal("expected fast subscriber to receive the second event")
	}
}

func TestUpdateStatus_BroadcastsStatusSnapshot(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(4)
	defer cancel()
	<-events // initial zero-value snapshot

	f.UpdateStatus(StatusSnapshot{Stage: "ready", FilesTotal: 3, FilesProcessed: 3, ProgressPct: 100})

	select {
	case evt := <-events:
		require.Equal(t, KindStatusSnapshot, evt.Kind)
		assert.Equal(t, "ready", evt.Status.Stage)
		assert.Equal(t, 100.0, evt.Status.ProgressPct)
	case <-time.After(time.Second):
		t.Fatal("expected a status-snapshot event after UpdateStatus")
	}

	assert.Equal(t, "ready", f.CurrentStatus().Stage)
}

func TestPublish_StampsTimestampWhenUnset(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(4)
	defer cancel()
	<-events

	before := time.Now()
	f.Publish(Event{Kind: KindBundleSyncStarted, BundleSync: &BundleSync{Name: "master"}})

	evt := <-events
	assert.False(t, evt.Timestamp.Before(before))
}

func TestPublish_BundleEventKinds(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(8)
	defer cancel()
	<-events

	f.Publish(Event{Kind: KindBundleSyncStarted, BundleSync: &BundleSync{Name: "master"}})
	f.Publish(Event{Kind: KindBundleUpdated, BundleUpdated: &BundleUpdated{Name: "master", FileCount: 2, SizeBytes: 512}})
	f.Publish(Event{Kind: KindBundleSyncCompleted, BundleSync: &BundleSync{Name: "master"}})

	var kinds []Kind
	for i := 0; i < 3; i++ {
		kinds = append(kinds, (<-events).Kind)
	}
	assert.Equal(t, []Kind{KindBundleSyncStarted, KindBundleUpdated, KindBundleSyncCompleted}, kinds)
}

func TestPublish_BundleSyncFailedCarriesError(t *testing.T) {
	f := New()
	events, cancel := f.Subscribe(4)
	defer cancel()
	<-events

	f.Publish(Event{Kind: KindBundleSyncFailed, BundleSync: &BundleSync{Name: "master", Error: "glob compile failed"}})

	evt := <-events
	require.Equal(t, KindBundleSyncFailed, evt.Kind)
	assert.Equal(t, "glob compile failed", evt.BundleSync.Error)
}
