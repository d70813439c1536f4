package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRef_DecodesBareString(t *testing.T) {
	var req CreateTicketRequest
	body := `{"title":"t","assignee":"u-42"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Assignee)
	assert.Equal(t, "u-42", req.Assignee.ID)
}

func TestUserRef_DecodesObject(t *testing.T) {
	var req CreateTicketRequest
	body := `{"title":"t","assignee":{"id":"u-42"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NotNil(t, req.Assignee)
	assert.Equal(t, "u-42", req.Assignee.ID)
}

func TestUserRef_AbsentStaysNil(t *testing.T) {
	var req CreateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t"}`), &req))
	assert.Nil(t, req.Assignee)
}

func TestQAReviewRequest_MissingAgreeIsNil(t *testing.T) {
	var req QAReviewRequest
	require.NoError(t, json.Unmarshal([]byte(`{"comment":"ok"}`), &req))
	assert.Nil(t, req.AgreeToRelease)

	require.NoError(t, json.Unmarshal([]byte(`{"agree_to_release":false}`), &req))
	require.NotNil(t, req.AgreeToRelease)
	assert.False(t, *req.AgreeToRelease)
}
