package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvera/marketplace_be/internal/models"
)

func TestWithdraw(t *testing.T) {
	app, gdb := newTestApp(t)
	freelancer, tokenF := createUser(t, gdb, models.RoleFreelancer)

	resp, _ := doReq(t, app, http.MethodPost, "/api/payments/withdraw", tokenF, map[string]interface{}{
		"amount": -50.0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := doReq(t, app, http.MethodPost, "/api/payments/withdraw", tokenF, map[string]interface{}{
		"amount": 250.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataMap(t, out)
	assert.Equal(t, "withdrawal", data["type"])
	assert.Equal(t, "pending", data["status"])
	// the platform pays, so there is no payer
	assert.Nil(t, data["payer_id"])

	var tr models.Transaction
	require.NoError(t, gdb.First(&tr, "payee_id = ?", freelancer.ID).Error)
	assert.Nil(t, tr.PayerID)
	assert.Equal(t, models.TransactionStatusPending, tr.Status)
}

// When a project has no budget, checkout falls back to the accepted bid
// amount.
func TestCheckoutFallsBackToBidAmount(t *testing.T) {
	app, gdb := newTestApp(t)
	client, clientToken := createUser(t, gdb, models.RoleClient)
	freelancer, _ := createUser(t, gdb, models.RoleFreelancer)

	fid := freelancer.ID
	p := models.Project{ClientID: client.ID, FreelancerID: &fid, Title: "no budget", Description: "d", Status: models.ProjectStatusCompleted, Version: 4}
	require.NoError(t, gdb.Create(&p).Error)
	require.NoError(t, gdb.Create(&models.Bid{
		ProjectID: p.ID, FreelancerID: fid, Amount: 333, Proposal: "p",
		Status: models.BidStatusAccepted, Version: 2,
	}).Error)

	resp, out := doReq(t, app, http.MethodPost, "/api/payments/checkout/project/"+p.ID.String(), clientToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 333.0, dataMap(t, out)["amount"])
}

func TestPaymentHistoryBothSides(t *testing.T) {
	app, gdb := newTestApp(t)
	client, clientToken := createUser(t, gdb, models.RoleClient)
	freelancer, _ := createUser(t, gdb, models.RoleFreelancer)

	cid := client.ID
	require.NoError(t, gdb.Create(&models.Transaction{
		PayerID: &cid, PayeeID: freelancer.ID, Amount: 100,
		Type: models.TransactionTypeProjectPayment, Status: models.TransactionStatusCompleted,
	}).Error)
	require.NoError(t, gdb.Create(&models.Transaction{
		PayeeID: client.ID, Amount: 40,
		Type: models.TransactionTypeRefund, Status: models.TransactionStatusCompleted,
	}).Error)

	resp, out := doReq(t, app, http.MethodGet, "/api/payments/history", clientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, ok := out["data"].([]interface{})
	require.True(t, ok)
	// one as payer, one as payee
	assert.Len(t, list, 2)
}
