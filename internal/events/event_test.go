package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKey(t *testing.T) {
	e := New(FollowCreated, "u1")
	assert.Equal(t, "u1", e.Key())

	e.TargetUserID = "u2"
	assert.Equal(t, "u2", e.Key())

	e.ContentID = "c1"
	assert.Equal(t, "c1", e.Key())
}

func TestEventJSON(t *testing.T) {
	e := New(ReactionLiked, "u1")
	e.ContentID = "c1"

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "reaction.liked", decoded["type"])
	assert.Equal(t, "c1", decoded["content_id"])
	assert.NotContains(t, decoded, "target_user_id")
	assert.NotContains(t, decoded, "degraded")
	assert.NotEmpty(t, decoded["id"])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(ViewRecorded, "u1")))
	assert.NoError(t, p.Close())
}
