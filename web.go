package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type WebConfig struct {
	RootDir          string
	Crop             Config
	Executor         *OperationExecutor
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnSave           func(ops Operations)
}

type WebApp struct {
	config       WebConfig
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config WebConfig) *WebApp {
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.router()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (a *WebApp) router() *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(c.Context()).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
					return nil
				}
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/config", a.handleConfig)
	webapp.Get("/api/ls", a.handleList)
	webapp.Get("/api/fit", a.handleFit)
	webapp.Get("/api/range", a.handleRange)
	webapp.Post("/api/crop", a.handleCrop)

	webapp.Post("/api/save", func(c *fiber.Ctx) error {
		var request struct {
			Operations []Operation `json:"operations"`
		}

		if err := c.BodyParser(&request); err != nil {
			return err
		}

		a.config.OnSave(request.Operations)

		return c.SendStatus(http.StatusNoContent)
	})
	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) handleConfig(c *fiber.Ctx) error {
	cfg := a.config.Crop
	return c.JSON(fiber.Map{
		"crop_area":   cfg.CropArea,
		"max_zoom":    cfg.MaxZoom,
		"resize_mode": cfg.ResizeMode,
		"shape":       cfg.Shape,
		"quality":     cfg.Quality,
		"mask_color":  cfg.Overlay.MaskColor(),
	})
}

func (a *WebApp) handleList(c *fiber.Ctx) error {
	dir, err := walkImages(a.config.RootDir)
	if err != nil {
		return fmt.Errorf("failed to walk dir: %w", err)
	}

	for i := range dir.Files {
		dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
	}

	var response struct {
		Name  string     `json:"name"`
		Files []FileInfo `json:"files"`
	}
	response.Name = dir.Name
	response.Files = dir.Files

	return c.JSON(response)
}

// session builds a crop session for one source file.
func (a *WebApp) session(filename string) (*Cropper, error) {
	info, err := readJPEGInfo(filepath.Join(a.config.RootDir, filename))
	if err != nil {
		return nil, fiber.NewError(http.StatusNotFound, fmt.Sprintf("cannot read %s: %s", filename, err))
	}
	cropper, err := NewCropper(a.config.Crop)
	if err != nil {
		return nil, err
	}
	if err := cropper.SetImage(info.ImageSize()); err != nil {
		return nil, fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	return cropper, nil
}

func (a *WebApp) handleFit(c *fiber.Ctx) error {
	filename := c.Query("file")
	if filename == "" {
		return fiber.NewError(http.StatusBadRequest, "file query parameter is required")
	}

	cropper, err := a.session(filename)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"min_zoom":  cropper.MinZoom(),
		"transform": cropper.Transform(),
		"image":     cropper.Image(),
	})
}

// handleRange settles a transform snapshot and reports the legal pan
// intervals at its scale. The client calls it when a gesture ends and
// animates towards the returned transform.
func (a *WebApp) handleRange(c *fiber.Ctx) error {
	filename := c.Query("file")
	if filename == "" {
		return fiber.NewError(http.StatusBadRequest, "file query parameter is required")
	}

	cropper, err := a.session(filename)
	if err != nil {
		return err
	}

	t := Transform{
		Scale:      c.QueryFloat("scale", cropper.Transform().Scale),
		TranslateX: c.QueryFloat("tx"),
		TranslateY: c.QueryFloat("ty"),
	}
	settled, err := cropper.SetTransform(t)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"transform": settled,
		"range_x":   cropper.RangeX(),
		"range_y":   cropper.RangeY(),
	})
}

func (a *WebApp) handleCrop(c *fiber.Ctx) error {
	var request struct {
		Filename string   `json:"filename"`
		Crop     CropSpec `json:"crop"`
	}
	if err := c.BodyParser(&request); err != nil {
		return err
	}
	if request.Filename == "" {
		return fiber.NewError(http.StatusBadRequest, "filename is required")
	}

	name, rect, err := a.config.Executor.executeCrop(c.Context(), CropOperation{
		Filename: request.Filename,
		Crop:     request.Crop,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuality), errors.Is(err, ErrInvalidImageDimensions):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"name":   name,
		"url":    "/api/view?file=" + url.QueryEscape(filepath.Join(filepath.Base(a.config.Executor.OutputDir), name)),
		"width":  int(rect.DisplaySize.Width),
		"height": int(rect.DisplaySize.Height),
	})
}
