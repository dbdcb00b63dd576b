package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvera/marketplace_be/internal/models"
)

// Walks a project from open to paid: bids, accept, submission, approval,
// checkout and reviews, asserting side effects at every step.
func TestProjectLifecycle(t *testing.T) {
	app, gdb := newTestApp(t)

	client, clientToken := createUser(t, gdb, models.RoleClient)
	freelancerA, tokenA := createUser(t, gdb, models.RoleFreelancer)
	freelancerB, tokenB := createUser(t, gdb, models.RoleFreelancer)

	// client posts a project
	resp, out := doReq(t, app, http.MethodPost, "/api/projects", clientToken, map[string]interface{}{
		"title":       "Build API backend",
		"description": "REST API untuk aplikasi mobile",
		"budget":      1000.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	projectID := dataMap(t, out)["id"].(string)

	// both freelancers bid
	resp, out = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/submit-bid", tokenA, map[string]interface{}{
		"amount":   800.0,
		"proposal": "Saya bisa mengerjakan dalam 2 minggu",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bidAID := dataMap(t, out)["id"].(string)

	resp, _ = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/submit-bid", tokenB, map[string]interface{}{
		"amount":   900.0,
		"proposal": "Pengalaman 5 tahun backend",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// duplicate bid from A is rejected
	resp, _ = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/submit-bid", tokenA, map[string]interface{}{
		"amount":   700.0,
		"proposal": "Revisi penawaran",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// freelancer B may not accept; only the owner can
	resp, _ = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/bid/"+bidAID+"/accept", tokenB, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// client accepts A's bid
	resp, out = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/bid/"+bidAID+"/accept", clientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// bid accepted, project in_progress with A assigned, contract active
	var bidA models.Bid
	require.NoError(t, gdb.First(&bidA, "id = ?", bidAID).Error)
	assert.Equal(t, models.BidStatusAccepted, bidA.Status)

	var bidB models.Bid
	require.NoError(t, gdb.First(&bidB, "project_id = ? AND freelancer_id = ?", projectID, freelancerB.ID).Error)
	assert.Equal(t, models.BidStatusRejected, bidB.Status)

	var p models.Project
	require.NoError(t, gdb.First(&p, "id = ?", projectID).Error)
	assert.Equal(t, models.ProjectStatusInProgress, p.Status)
	require.NotNil(t, p.FreelancerID)
	assert.Equal(t, freelancerA.ID, *p.FreelancerID)

	var contract models.Contract
	require.NoError(t, gdb.First(&contract, "project_id = ?", projectID).Error)
	assert.Equal(t, models.ContractStatusActive, contract.Status)
	assert.Equal(t, 800.0, contract.AgreedAmount)
	assert.Equal(t, client.ID, contract.ClientID)
	assert.Equal(t, freelancerA.ID, contract.FreelancerID)

	// accepting again is an invalid state, not a second contract
	resp, _ = doReq(t, app, http.MethodPost, "/api/project/"+projectID+"/bid/"+bidAID+"/accept", clientToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var contractCount int64
	gdb.Model(&models.Contract{}).Where("project_id = ?", projectID).Count(&contractCount)
	assert.EqualValues(t, 1, contractCount)

	// review before completion is rejected
	resp, _ = doReq(t, app, http.MethodPost, "/api/reviews", clientToken, map[string]interface{}{
		"project_id": projectID,
		"rating":     5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// only the assigned freelancer can submit work
	resp, _ = doReq(t, app, http.MethodPost, "/api/projects/"+projectID+"/submissions", tokenB, map[string]interface{}{
		"notes": "bukan pekerjaan saya",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, out = doReq(t, app, http.MethodPost, "/api/projects/"+projectID+"/submissions", tokenA, map[string]interface{}{
		"notes": "Versi pertama selesai",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	submissionID := dataMap(t, out)["id"].(string)
	assert.EqualValues(t, 1, dataMap(t, out)["version"])

	require.NoError(t, gdb.First(&p, "id = ?", projectID).Error)
	assert.Equal(t, models.ProjectStatusAwaitingReview, p.Status)

	// no second submission while awaiting review
	resp, _ = doReq(t, app, http.MethodPost, "/api/projects/"+projectID+"/submissions", tokenA, map[string]interface{}{
		"notes": "tidak sabar",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// checkout before completion is rejected
	resp, _ = doReq(t, app, http.MethodPost, "/api/payments/checkout/project/"+projectID, clientToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// client approves
	resp, _ = doReq(t, app, http.MethodPost, "/api/projects/"+projectID+"/submissions/"+submissionID+"/approve", clientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, gdb.First(&p, "id = ?", projectID).Error)
	assert.Equal(t, models.ProjectStatusCompleted, p.Status)
	require.NoError(t, gdb.First(&contract, "project_id = ?", projectID).Error)
	assert.Equal(t, models.ContractStatusCompleted, contract.Status)

	// checkout pays the budget amount and cannot be repeated
	resp, out = doReq(t, app, http.MethodPost, "/api/payments/checkout/project/"+projectID, clientToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	payment := dataMap(t, out)
	assert.Equal(t, "project_payment", payment["type"])
	assert.Equal(t, "completed", payment["status"])
	assert.Equal(t, 1000.0, payment["amount"])

	resp, _ = doReq(t, app, http.MethodPost, "/api/payments/checkout/project/"+projectID, clientToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// both sides review each other; duplicates rejected
	resp, _ = doReq(t, app, http.MethodPost, "/api/reviews", clientToken, map[string]interface{}{
		"project_id": projectID,
		"rating":     4,
		"comment":    "Kerja bagus",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doReq(t, app, http.MethodPost, "/api/reviews", clientToken, map[string]interface{}{
		"project_id": projectID,
		"rating":     5,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doReq(t, app, http.MethodPost, "/api/reviews", tokenA, map[string]interface{}{
		"project_id": projectID,
		"rating":     5,
		"comment":    "Client responsif",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// client review rolled up into the freelancer's average rating
	var fp models.FreelancerProfile
	require.NoError(t, gdb.First(&fp, "user_id = ?", freelancerA.ID).Error)
	require.NotNil(t, fp.AverageRating)
	assert.Equal(t, 4.0, *fp.AverageRating)

	// an outsider cannot review
	resp, _ = doReq(t, app, http.MethodPost, "/api/reviews", tokenB, map[string]interface{}{
		"project_id": projectID,
		"rating":     1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitBidOnClosedProject(t *testing.T) {
	app, gdb := newTestApp(t)
	client, _ := createUser(t, gdb, models.RoleClient)
	_, tokenF := createUser(t, gdb, models.RoleFreelancer)

	p := models.Project{ClientID: client.ID, Title: "done", Description: "d", Status: models.ProjectStatusCompleted, Version: 1}
	require.NoError(t, gdb.Create(&p).Error)

	resp, _ := doReq(t, app, http.MethodPost, "/api/project/"+p.ID.String()+"/submit-bid", tokenF, map[string]interface{}{
		"amount":   100.0,
		"proposal": "terlambat",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWithdrawBid(t *testing.T) {
	app, gdb := newTestApp(t)
	client, _ := createUser(t, gdb, models.RoleClient)
	freelancer, tokenF := createUser(t, gdb, models.RoleFreelancer)

	p := models.Project{ClientID: client.ID, Title: "open", Description: "d", Status: models.ProjectStatusOpen, Version: 1}
	require.NoError(t, gdb.Create(&p).Error)
	b := models.Bid{ProjectID: p.ID, FreelancerID: freelancer.ID, Amount: 100, Proposal: "p", Status: models.BidStatusPending, Version: 1}
	require.NoError(t, gdb.Create(&b).Error)

	// anything but withdrawn is refused
	resp, _ := doReq(t, app, http.MethodPut, "/api/bids/"+b.ID.String(), tokenF, map[string]interface{}{
		"status": "accepted",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := doReq(t, app, http.MethodPut, "/api/bids/"+b.ID.String(), tokenF, map[string]interface{}{
		"status": "withdrawn",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "withdrawn", dataMap(t, out)["status"])

	// withdrawing frees the slot for a fresh bid
	resp, _ = doReq(t, app, http.MethodPost, "/api/project/"+p.ID.String()+"/submit-bid", tokenF, map[string]interface{}{
		"amount":   120.0,
		"proposal": "penawaran baru",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// Submission versions keep counting up from where they left off.
func TestSubmissionVersioning(t *testing.T) {
	app, gdb := newTestApp(t)
	client, _ := createUser(t, gdb, models.RoleClient)
	freelancer, tokenF := createUser(t, gdb, models.RoleFreelancer)

	fid := freelancer.ID
	p := models.Project{ClientID: client.ID, FreelancerID: &fid, Title: "work", Description: "d", Status: models.ProjectStatusInProgress, Version: 2}
	require.NoError(t, gdb.Create(&p).Error)
	require.NoError(t, gdb.Create(&models.Contract{
		ProjectID: p.ID, ClientID: client.ID, FreelancerID: fid,
		AgreedAmount: 100, Status: models.ContractStatusActive,
	}).Error)
	require.NoError(t, gdb.Create(&models.WorkSubmission{
		ProjectID: p.ID, FreelancerID: fid, Version: 1, Notes: "draft awal",
	}).Error)

	resp, out := doReq(t, app, http.MethodPost, "/api/projects/"+p.ID.String()+"/submissions", tokenF, map[string]interface{}{
		"notes": "revisi",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 2, dataMap(t, out)["version"])

	// listing is ascending by version
	resp, out = doReq(t, app, http.MethodGet, "/api/projects/"+p.ID.String()+"/submissions", tokenF, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := out["data"].([]interface{})
	require.Len(t, list, 2)
	assert.EqualValues(t, 1, list[0].(map[string]interface{})["version"])
	assert.EqualValues(t, 2, list[1].(map[string]interface{})["version"])
}
