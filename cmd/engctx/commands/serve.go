package commands

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/samoht625/cursor-eng-ctx/internal/adapter/store"
	"github.com/samoht625/cursor-eng-ctx/internal/adapter/vcs"
	"github.com/samoht625/cursor-eng-ctx/internal/handler"
	"github.com/samoht625/cursor-eng-ctx/pkg/config"
)

// ServeCommand holds the flags for the serve command.
type ServeCommand struct {
	port string
}

// NewServeCommand creates and configures the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &ServeCommand{}

	cobraCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API over persisted analysis results",
		RunE:  cmd.Run,
	}

	cobraCmd.Flags().StringVar(&cmd.port, "port", "", "HTTP port (default from PORT)")

	return cobraCmd
}

// Run executes the serve command.
func (c *ServeCommand) Run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	port := c.port
	if port == "" {
		port = cfg.Port
	}

	st, err := store.Open(cfg.DBDir)
	if err != nil {
		return err
	}
	defer st.Close()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"app":    cfg.AppName,
		})
	})

	api := app.Group("/api/v1")
	reportsHandler := handler.NewReportsHandler(st, vcs.NewGitSource(), cfg.RepoPath)
	reportsHandler.Register(api)

	slog.Info("reporting API listening", "port", port)
	return app.Listen(":" + port)
}
