package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hubchantier/internal/core/id"
)

func TestNewAudited(t *testing.T) {
	doc := NewAudited()

	assert.False(t, id.IsNil(doc.ID))
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	doc.Touch()
	assert.Equal(t, 2, doc.Version)
}

func TestSoftDelete(t *testing.T) {
	var sd SoftDelete
	assert.False(t, sd.IsDeleted())

	sd.MarkDeleted("user-1")
	assert.True(t, sd.IsDeleted())
	if assert.NotNil(t, sd.DeletedBy) {
		assert.Equal(t, "user-1", *sd.DeletedBy)
	}

	sd.Restore()
	assert.False(t, sd.IsDeleted())
	assert.Nil(t, sd.DeletedBy)
}

func TestStamp_KeepsVersion(t *testing.T) {
	a := NewAudited()
	created := a.UpdatedAt

	a.Stamp()

	assert.Equal(t, 1, a.Version)
	assert.False(t, a.UpdatedAt.Before(created))
	assert.Equal(t, created, a.CreatedAt)
}
