package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvera/marketplace_be/internal/models"
)

func TestUpdateMyProfile(t *testing.T) {
	app, gdb := newTestApp(t)
	freelancer, tokenF := createUser(t, gdb, models.RoleFreelancer)

	resp, out := doReq(t, app, http.MethodPut, "/api/users/me/profile", tokenF, map[string]interface{}{
		"full_name":   "Rina Wijaya",
		"bio":         "Backend engineer",
		"hourly_rate": 25.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataMap(t, out)
	assert.Equal(t, "Rina Wijaya", data["full_name"])

	var fp models.FreelancerProfile
	require.NoError(t, gdb.First(&fp, "user_id = ?", freelancer.ID).Error)
	assert.Equal(t, "Backend engineer", fp.Bio)
	require.NotNil(t, fp.HourlyRate)
	assert.Equal(t, 25.0, *fp.HourlyRate)

	// negative rate refused
	resp, _ = doReq(t, app, http.MethodPut, "/api/users/me/profile", tokenF, map[string]interface{}{
		"hourly_rate": -1.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// fields outside the allow-list are ignored
	resp, _ = doReq(t, app, http.MethodPut, "/api/users/me/profile", tokenF, map[string]interface{}{
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var u models.User
	require.NoError(t, gdb.First(&u, "id = ?", freelancer.ID).Error)
	assert.Equal(t, models.RoleFreelancer, u.Role)
}

func TestGetUserPublicProfile(t *testing.T) {
	app, gdb := newTestApp(t)
	freelancer, _ := createUser(t, gdb, models.RoleFreelancer)

	// profil bisa dilihat tanpa login
	resp, out := doReq(t, app, http.MethodGet, "/api/users/"+freelancer.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataMap(t, out)
	assert.Equal(t, freelancer.Username, data["username"])
	// password never leaves the server
	_, present := data["password"]
	assert.False(t, present)

	resp, _ = doReq(t, app, http.MethodGet, "/api/users/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
