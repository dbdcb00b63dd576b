package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvera/marketplace_be/internal/models"
)

func TestCreateOrGetChat(t *testing.T) {
	app, gdb := newTestApp(t)
	userA, tokenA := createUser(t, gdb, models.RoleClient)
	userB, tokenB := createUser(t, gdb, models.RoleFreelancer)

	// cannot chat with yourself
	resp, _ := doReq(t, app, http.MethodPost, "/api/chats", tokenA, map[string]interface{}{
		"participant_id": userA.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := doReq(t, app, http.MethodPost, "/api/chats", tokenA, map[string]interface{}{
		"participant_id": userB.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["created"])
	chatID := dataMap(t, out)["id"].(string)

	// same pair from the other side gets the existing chat back
	resp, out = doReq(t, app, http.MethodPost, "/api/chats", tokenB, map[string]interface{}{
		"participant_id": userA.ID.String(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["created"])
	assert.Equal(t, chatID, dataMap(t, out)["id"])
}

func TestSendAndReadMessages(t *testing.T) {
	app, gdb := newTestApp(t)
	userA, tokenA := createUser(t, gdb, models.RoleClient)
	userB, tokenB := createUser(t, gdb, models.RoleFreelancer)
	_, tokenC := createUser(t, gdb, models.RoleFreelancer)

	chat := models.Chat{Participant1ID: userA.ID, Participant2ID: userB.ID}
	require.NoError(t, gdb.Create(&chat).Error)
	chatID := chat.ID.String()

	// outsider has no access
	resp, _ := doReq(t, app, http.MethodPost, "/api/chats/"+chatID+"/messages", tokenC, map[string]interface{}{
		"content": "numpang lewat",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out := doReq(t, app, http.MethodPost, "/api/chats/"+chatID+"/messages", tokenA, map[string]interface{}{
		"content": "Halo, tertarik dengan project saya?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, userA.ID.String(), dataMap(t, out)["sender_id"])

	// the send bumped chat activity
	var got models.Chat
	require.NoError(t, gdb.First(&got, "id = ?", chat.ID).Error)
	assert.NotNil(t, got.LastMessageAt)

	// unread shows up for B
	resp, out = doReq(t, app, http.MethodGet, "/api/chats", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chats := out["data"].([]interface{})
	require.Len(t, chats, 1)
	assert.EqualValues(t, 1, chats[0].(map[string]interface{})["unread_count"])

	// fetching messages marks them read
	resp, out = doReq(t, app, http.MethodGet, "/api/chats/"+chatID+"/messages", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := out["data"].([]interface{})
	require.Len(t, msgs, 1)

	var unread int64
	gdb.Model(&models.Message{}).
		Where("chat_id = ? AND is_read = false", chat.ID).
		Count(&unread)
	assert.EqualValues(t, 0, unread)
}

func TestMarkAsRead(t *testing.T) {
	app, gdb := newTestApp(t)
	userA, _ := createUser(t, gdb, models.RoleClient)
	userB, tokenB := createUser(t, gdb, models.RoleFreelancer)

	chat := models.Chat{Participant1ID: userA.ID, Participant2ID: userB.ID}
	require.NoError(t, gdb.Create(&chat).Error)
	require.NoError(t, gdb.Create(&models.Message{
		ChatID: chat.ID, SenderID: userA.ID, ReceiverID: userB.ID,
		Content: "pesan belum dibaca",
	}).Error)

	resp, _ := doReq(t, app, http.MethodPatch, "/api/chats/"+chat.ID.String()+"/read", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var unread int64
	gdb.Model(&models.Message{}).
		Where("chat_id = ? AND is_read = false", chat.ID).
		Count(&unread)
	assert.EqualValues(t, 0, unread)
}
