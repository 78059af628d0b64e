package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseID(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := ParseID(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("not-an-id")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOrderByIDs(t *testing.T) {
	a, b, c, missing := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	type item struct{ id primitive.ObjectID }

	items := []item{{c}, {a}, {b}}
	got := OrderByIDs([]primitive.ObjectID{b, missing, a, c}, items, func(i item) primitive.ObjectID { return i.id })

	require.Len(t, got, 3)
	assert.Equal(t, b, got[0].id)
	assert.Equal(t, a, got[1].id)
	assert.Equal(t, c, got[2].id)
}
