package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/taskvera/marketplace_be/internal/config"
	"github.com/taskvera/marketplace_be/internal/db"
	"github.com/taskvera/marketplace_be/internal/handlers"
	"github.com/taskvera/marketplace_be/internal/middleware"
	"github.com/taskvera/marketplace_be/internal/models"
	"github.com/taskvera/marketplace_be/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis tidak tersedia, notifikasi chat dimatikan:", err)
		rdb = nil
	}

	hub := realtime.NewHub()
	go hub.Run()

	if err := gdb.AutoMigrate(
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
	); err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	authH := &handlers.AuthHandler{
		DB:        gdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	userH := handlers.NewUserHandler(gdb)
	projectH := handlers.NewProjectHandler(gdb)
	bidH := handlers.NewBidHandler(gdb)
	submissionH := handlers.NewSubmissionHandler(gdb)
	contractH := handlers.NewContractHandler(gdb)
	paymentH := handlers.NewPaymentHandler(gdb)
	reviewH := handlers.NewReviewHandler(gdb)
	chatH := handlers.NewChatHandler(gdb, hub, rdb)
	dashboardH := handlers.NewFreelancerDashboardHandler(gdb)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	api.Get("/projects", projectH.ListProjects)
	api.Get("/projects/:id", projectH.GetProject)
	api.Get("/reviews/user/:id", reviewH.ListByUser)
	api.Get("/reviews/project/:id", reviewH.ListByProject)
	api.Get("/users/:id", userH.GetUser)

	// protected (JWT via cookie atau bearer)
	protected := api.Group("/",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/auth/me", authH.Me)

	protected.Put("/users/me/profile", userH.UpdateMyProfile)

	protected.Post("/projects",
		middleware.RequireRoles("client"),
		projectH.CreateProject,
	)
	protected.Put("/projects/:id",
		middleware.RequireRoles("client"),
		projectH.UpdateProject,
	)
	protected.Delete("/projects/:id",
		middleware.RequireRoles("client"),
		projectH.DeleteProject,
	)

	protected.Post("/project/:id/submit-bid",
		middleware.RequireRoles("freelancer"),
		bidH.SubmitBid,
	)
	protected.Get("/project/:id/list-bids",
		middleware.RequireRoles("client"),
		bidH.ListProjectBids,
	)
	protected.Get("/bids/:id", bidH.GetBid)
	protected.Put("/bids/:id",
		middleware.RequireRoles("freelancer"),
		bidH.UpdateBid,
	)
	protected.Post("/project/:id/bid/:bidId/accept",
		middleware.RequireRoles("client"),
		bidH.AcceptBid,
	)

	protected.Post("/projects/:id/submissions",
		middleware.RequireRoles("freelancer"),
		submissionH.SubmitWork,
	)
	protected.Get("/projects/:id/submissions", submissionH.ListSubmissions)
	protected.Post("/projects/:id/submissions/:submissionId/approve",
		middleware.RequireRoles("client"),
		submissionH.ApproveSubmission,
	)

	protected.Get("/contracts", contractH.ListMyContracts)
	protected.Get("/contracts/:id", contractH.GetContract)
	protected.Put("/contracts/:id/status", contractH.UpdateContractStatus)

	protected.Post("/payments/checkout/project/:id",
		middleware.RequireRoles("client"),
		paymentH.Checkout,
	)
	protected.Post("/payments/withdraw",
		middleware.RequireRoles("freelancer"),
		paymentH.Withdraw,
	)
	protected.Get("/payments/history", paymentH.History)

	protected.Post("/reviews", reviewH.CreateReview)

	chat := protected.Group("/chats")
	chat.Post("/", chatH.CreateOrGetChat)
	chat.Get("/", chatH.GetChats)
	chat.Get("/:id/messages", chatH.GetMessages)
	chat.Post("/:id/messages", chatH.SendMessage)
	chat.Patch("/:id/read", chatH.MarkAsRead)

	dashboardH.Routes(protected,
		middleware.RequireRoles("freelancer"),
	)

	// websocket tanpa JWT middleware, autentikasi via query param
	app.Get("/ws/chat", websocket.New(chatH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
