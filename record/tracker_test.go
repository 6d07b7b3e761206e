package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_SetFieldValue(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"title": "old"})
	assert.False(t, tracker.HasChanges())

	tracker.SetFieldValue("title", "new")
	assert.True(t, tracker.Changed("title"))
	assert.Equal(t, "new", tracker.CurrentValue("title"))
	assert.Equal(t, "old", tracker.PreviousValue("title"))

	// Reverting to the original clears the change
	tracker.SetFieldValue("title", "old")
	assert.False(t, tracker.Changed("title"))
	assert.False(t, tracker.HasChanges())
}

func TestTracker_MarkChanged(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"tags_ids": []string{"t1"}})

	// Equal value, but force-marked dirty
	tracker.MarkChanged("tags_ids")
	assert.True(t, tracker.Changed("tags_ids"))
	assert.True(t, tracker.HasChanges())

	data := tracker.GetChangedData()
	assert.Equal(t, []string{"t1"}, data["tags_ids"])
}

func TestTracker_GetChangedData(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"title": "old", "views": 1})
	tracker.SetFieldValue("title", "new")

	data := tracker.GetChangedData()
	assert.Len(t, data, 1)
	assert.Equal(t, "new", data["title"])
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"title": "old"})
	tracker.SetFieldValue("title", "new")
	tracker.MarkChanged("title")

	tracker.Reset()
	assert.False(t, tracker.HasChanges())
	assert.Equal(t, "new", tracker.CurrentValue("title"))
	assert.Equal(t, "new", tracker.PreviousValue("title"))
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"tags_ids": []string{"t1"}})

	snapshot := tracker.Snapshot()
	snapshot["tags_ids"].([]string)[0] = "mutated"

	assert.Equal(t, []string{"t1"}, tracker.CurrentValue("tags_ids"))
}

func TestTracker_ChangedFields(t *testing.T) {
	tracker := NewTracker(map[string]interface{}{"a": 1, "b": 2})
	tracker.SetFieldValue("a", 9)
	tracker.MarkChanged("b")

	assert.ElementsMatch(t, []string{"a", "b"}, tracker.ChangedFields())
}
