package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"threadview/config"
	"threadview/handlers/api"
	"threadview/mailapi"
	"threadview/middleware"
	"threadview/sanitize"
	"threadview/sendgate"
	"threadview/storage"
	"threadview/utils"
	"threadview/view"
)

// notifyingUpdater forwards the pipeline's thread updates to the view
// and announces reconciliation on the event feed.
type notifyingUpdater struct {
	*view.ThreadView
	events *api.EventHandler
}

func (u notifyingUpdater) Reconcile(threadID string) {
	u.ThreadView.Reconcile(threadID)
	u.events.NotifyThreadUpdated(threadID)
}

func main() {
	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Log.SetLevel(utils.ParseLogLevel(cfg.Server.LogLevel))

	apiClient := mailapi.NewClient(mailapi.Config{
		BaseURL:       cfg.MailAPI.BaseURL,
		APIKey:        cfg.MailAPI.APIKey,
		Timeout:       time.Duration(cfg.MailAPI.TimeoutSeconds) * time.Second,
		ImageProxyURL: cfg.MailAPI.ImageProxyURL,
	}, utils.Log)

	powClient := mailapi.NewPowClient(mailapi.PowConfig{
		BaseURL:           cfg.Pow.BaseURL,
		APIKey:            cfg.Pow.APIKey,
		MinDifficultyBits: cfg.Pow.MinDifficultyBits,
	}, utils.Log)

	engine := sanitize.NewEngine(sanitize.MessagePolicy(), apiClient.ProxyImageURL)

	store, err := storage.NewStagedStore(cfg.Attachments.DBPath)
	if err != nil {
		utils.Log.Error("Failed to open staged attachment store: %v", err)
		os.Exit(1)
	}

	// Thread reads come from IMAP when configured, the mail API
	// otherwise. Submission always goes through the mail API.
	var threadSource view.ThreadSource = apiClient
	if cfg.IMAP.Enabled {
		threadSource = mailapi.NewIMAPSource(mailapi.IMAPConfig{
			Server:   cfg.IMAP.Server,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: cfg.IMAP.Password,
			Folder:   cfg.IMAP.Folder,
		}, utils.Log)
	}

	events := api.NewEventHandler()

	manager := view.NewManager(func(owner string, identity *sendgate.Identity) *view.Session {
		threadView := view.NewThreadView(threadSource, apiClient, apiClient, engine, utils.Log)
		widget := sendgate.NewWidgetSource()
		pipeline := sendgate.New(sendgate.Config{
			Verification:      widget,
			Provider:          powClient,
			Uploader:          view.NewStagedUploader(store, apiClient, owner),
			Submitter:         apiClient,
			Updater:           notifyingUpdater{ThreadView: threadView, events: events},
			Logger:            utils.Log,
			VerifyTimeout:     time.Duration(cfg.Verification.WaitSeconds) * time.Second,
			MinDifficultyBits: cfg.Pow.MinDifficultyBits,
		})
		return &view.Session{
			View:     threadView,
			Composer: view.NewComposer(identity, owner, pipeline, store),
			Widget:   widget,
		}
	})

	sessionHandler := api.NewSessionHandler(cfg)
	threadHandler := api.NewThreadHandler(manager, sanitize.ParseThemeMode(cfg.Sanitizer.DefaultTheme))
	sendHandler := api.NewSendHandler(manager, events)
	attachmentHandler := api.NewAttachmentHandler(store, cfg.Attachments.MaxFileBytes)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
				body := fiber.Map{"error": appErr.Message}
				for k, v := range appErr.Context {
					body[k] = v
				}
				return c.Status(code).JSON(body)
			}
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' https:;",
	}))
	app.Use(middleware.RateLimiter(100, time.Minute, middleware.KeyByIP))
	app.Use(middleware.CSRFProtection())

	app.Post("/login", sessionHandler.HandleLogin)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	protected := app.Group("/api", sessionHandler.AuthRequired())
	{
		protected.Get("/thread/:id", threadHandler.HandleThread)

		protected.Post("/send", middleware.SendRateLimiter(), sendHandler.HandleSend)
		protected.Post("/compose/recipient", sendHandler.HandleRecipientChanged)
		protected.Post("/verification", sendHandler.HandleVerificationToken)

		protected.Post("/attachments", attachmentHandler.HandleStage)
		protected.Get("/attachments", attachmentHandler.HandleList)
		protected.Delete("/attachments/:id", attachmentHandler.HandleDelete)

		protected.Get("/events", events.HandleSSE)

		protected.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		protected.Get("/ws", websocket.New(events.HandleWebSocket))
	}

	// Graceful shutdown: stop accepting requests, then tear down the
	// send pipelines and the staged store.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		utils.Log.Info("Shutting down...")
		_ = app.Shutdown()
	}()

	utils.Log.Info("Starting server on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}

	manager.Close()
	powClient.Cleanup()
	if err := store.Close(); err != nil {
		utils.Log.Error("Failed to close staged store: %v", err)
	}
}
