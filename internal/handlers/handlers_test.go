package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskvera/marketplace_be/internal/middleware"
	"github.com/taskvera/marketplace_be/internal/models"
	"github.com/taskvera/marketplace_be/internal/realtime"
	"github.com/taskvera/marketplace_be/internal/utils"
)

const testSecret = "test-secret"

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared",
		atomic.AddInt64(&testDBSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.ClientProfile{},
		&models.FreelancerProfile{},
		&models.Project{},
		&models.Bid{},
		&models.Contract{},
		&models.WorkSubmission{},
		&models.Transaction{},
		&models.Review{},
		&models.Chat{},
		&models.Message{},
	))
	return gdb
}

// newTestApp wires the routes the same way cmd/api does, minus redis.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	gdb := newTestDB(t)

	hub := realtime.NewHub()
	go hub.Run()

	authH := &AuthHandler{DB: gdb, JWTSecret: testSecret, Expires: 60}
	userH := NewUserHandler(gdb)
	projectH := NewProjectHandler(gdb)
	bidH := NewBidHandler(gdb)
	submissionH := NewSubmissionHandler(gdb)
	contractH := NewContractHandler(gdb)
	paymentH := NewPaymentHandler(gdb)
	reviewH := NewReviewHandler(gdb)
	chatH := NewChatHandler(gdb, hub, nil)
	dashboardH := NewFreelancerDashboardHandler(gdb)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})

	api := app.Group("/api")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/projects", projectH.ListProjects)
	api.Get("/projects/:id", projectH.GetProject)
	api.Get("/reviews/user/:id", reviewH.ListByUser)
	api.Get("/reviews/project/:id", reviewH.ListByProject)
	api.Get("/users/:id", userH.GetUser)

	protected := api.Group("/",
		middleware.JWTAuth(testSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/auth/me", authH.Me)
	protected.Put("/users/me/profile", userH.UpdateMyProfile)

	protected.Post("/projects", middleware.RequireRoles("client"), projectH.CreateProject)
	protected.Put("/projects/:id", middleware.RequireRoles("client"), projectH.UpdateProject)
	protected.Delete("/projects/:id", middleware.RequireRoles("client"), projectH.DeleteProject)

	protected.Post("/project/:id/submit-bid", middleware.RequireRoles("freelancer"), bidH.SubmitBid)
	protected.Get("/project/:id/list-bids", middleware.RequireRoles("client"), bidH.ListProjectBids)
	protected.Get("/bids/:id", bidH.GetBid)
	protected.Put("/bids/:id", middleware.RequireRoles("freelancer"), bidH.UpdateBid)
	protected.Post("/project/:id/bid/:bidId/accept", middleware.RequireRoles("client"), bidH.AcceptBid)

	protected.Post("/projects/:id/submissions", middleware.RequireRoles("freelancer"), submissionH.SubmitWork)
	protected.Get("/projects/:id/submissions", submissionH.ListSubmissions)
	protected.Post("/projects/:id/submissions/:submissionId/approve", middleware.RequireRoles("client"), submissionH.ApproveSubmission)

	protected.Get("/contracts", contractH.ListMyContracts)
	protected.Get("/contracts/:id", contractH.GetContract)
	protected.Put("/contracts/:id/status", contractH.UpdateContractStatus)

	protected.Post("/payments/checkout/project/:id", middleware.RequireRoles("client"), paymentH.Checkout)
	protected.Post("/payments/withdraw", middleware.RequireRoles("freelancer"), paymentH.Withdraw)
	protected.Get("/payments/history", paymentH.History)

	protected.Post("/reviews", reviewH.CreateReview)

	chat := protected.Group("/chats")
	chat.Post("/", chatH.CreateOrGetChat)
	chat.Get("/", chatH.GetChats)
	chat.Get("/:id/messages", chatH.GetMessages)
	chat.Post("/:id/messages", chatH.SendMessage)
	chat.Patch("/:id/read", chatH.MarkAsRead)

	dashboardH.Routes(protected, middleware.RequireRoles("freelancer"))

	return app, gdb
}

func createUser(t *testing.T, gdb *gorm.DB, role models.Role) (models.User, string) {
	t.Helper()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	hashed, err := utils.HashPassword("password123")
	require.NoError(t, err)

	u := models.User{
		Username: "user_" + suffix,
		Email:    "user_" + suffix + "@example.com",
		FullName: "Test User " + suffix,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, gdb.Create(&u).Error)

	switch role {
	case models.RoleClient:
		require.NoError(t, gdb.Create(&models.ClientProfile{UserID: u.ID}).Error)
	case models.RoleFreelancer:
		require.NoError(t, gdb.Create(&models.FreelancerProfile{UserID: u.ID}).Error)
	}

	token, err := utils.SignJWT(testSecret, u.ID.String(), string(role), 60)
	require.NoError(t, err)
	return u, token
}

func doReq(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func dataMap(t *testing.T, out map[string]interface{}) map[string]interface{} {
	t.Helper()
	m, ok := out["data"].(map[string]interface{})
	require.True(t, ok, "response data is not an object: %v", out)
	return m
}
