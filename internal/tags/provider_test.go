package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTagAssignsAndRemembers(t *testing.T) {
	p := NewProvider()

	assert.Equal(t, "1", p.GetTag("worker", "c1"))
	assert.Equal(t, "2", p.GetTag("worker", "c2"))
	// stable on repeat
	assert.Equal(t, "1", p.GetTag("worker", "c1"))
	// independent per role
	assert.Equal(t, "1", p.GetTag("master", "c1"))
}

func TestReleaseTagRecyclesSlot(t *testing.T) {
	p := NewProvider()
	p.GetTag("worker", "c1")
	p.GetTag("worker", "c2")

	p.ReleaseTag("worker", "c1")
	// replacement container takes the freed slot, not a new one
	assert.Equal(t, "1", p.GetTag("worker", "c9"))
	assert.Equal(t, "2", p.GetTag("worker", "c2"))
	assert.Equal(t, "3", p.GetTag("worker", "c10"))
}

func TestRecordAssignedTag(t *testing.T) {
	p := NewProvider()
	p.RecordAssignedTag("worker", "c5", "3")

	assert.Equal(t, "3", p.GetTag("worker", "c5"))
	// slots 1 and 2 stay available
	assert.Equal(t, "1", p.GetTag("worker", "c1"))
	assert.Equal(t, "2", p.GetTag("worker", "c2"))
}

func TestRecordAssignedTagIgnoresGarbage(t *testing.T) {
	p := NewProvider()
	p.RecordAssignedTag("worker", "c1", "not-a-number")
	p.RecordAssignedTag("worker", "c1", "0")
	p.RecordAssignedTag("worker", "c1", "-2")

	assert.Equal(t, "1", p.GetTag("worker", "c1"))
}

func TestEmptyArguments(t *testing.T) {
	p := NewProvider()
	assert.Equal(t, "", p.GetTag("", "c1"))
	assert.Equal(t, "", p.GetTag("worker", ""))
	// must not panic
	p.ReleaseTag("", "c1")
	p.RecordAssignedTag("", "c1", "1")
}
