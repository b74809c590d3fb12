package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("avatarcrop"),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type CropFlags struct {
	CropSize  Size       `help:"Crop window size as WIDTHxHEIGHT" default:"300x300"`
	MaxZoom   float64    `help:"Maximum zoom relative to the contain baseline" default:"3"`
	Mode      ResizeMode `help:"Initial framing of the image" enum:"contain,cover" default:"contain"`
	Shape     Shape      `help:"Crop window shape" enum:"rect,circle" default:"rect"`
	Quality   float64    `help:"Output quality factor in [0,1]" default:"1"`
	MaskColor string     `help:"Overlay color around the crop window" default:"#000000"`
	MaskAlpha float64    `help:"Overlay opacity in [0,1]" default:"0.7"`
}

func (f CropFlags) config() Config {
	return Config{
		CropArea:   f.CropSize,
		MaxZoom:    f.MaxZoom,
		ResizeMode: f.Mode,
		Shape:      f.Shape,
		Quality:    f.Quality,
		Overlay:    Overlay{Color: f.MaskColor, Opacity: f.MaskAlpha},
	}
}

type serveCmd struct {
	RootDir string `arg:"" help:"Root directory to serve images from"`
	Open    bool   `help:"Open the browser automatically when the server starts" default:"true"`
	JSON    bool   `help:"Output operations in JSON format without executing"`
	Once    bool   `help:"Run the server once and exit after save" default:"true"`
	Verbose bool   `help:"Enable verbose logging" default:"false"`
	CropFlags
}

func (cmd *serveCmd) Run() error {
	level := zerolog.InfoLevel
	if cmd.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	cropConfig := cmd.config()
	// Fail on an unusable configuration before the server comes up.
	if _, err := NewCropper(cropConfig); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	executor := &OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: filepath.Join(cmd.RootDir, "output"),
		Config:    cropConfig,
		Cropper:   NewImagingCropper(),
	}

	app := NewWebApp(WebConfig{
		RootDir:  cmd.RootDir,
		Crop:     cropConfig,
		Executor: executor,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnSave: func(ops Operations) {
			if cmd.JSON {
				printJSONL(ops)
			} else {
				if err := executor.Exec(ctx, ops); err != nil {
					log.Ctx(ctx).Error().Err(err).Msg("Failed to execute operations")
				}
			}

			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type applyCmd struct {
	OpsFile   string `arg:"" help:"JSONL file with operations, one per line (use 'serve --json' to produce it)"`
	RootDir   string `arg:"" help:"Root directory the operation filenames are relative to"`
	OutputDir string `help:"Directory to write results to, defaults to ROOT/output"`
	Verbose   bool   `help:"Enable verbose logging" default:"false"`
	CropFlags
}

func (cmd *applyCmd) Run() error {
	level := zerolog.InfoLevel
	if cmd.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	ops, err := readOperations(cmd.OpsFile)
	if err != nil {
		return err
	}

	outputDir := cmd.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(cmd.RootDir, "output")
	}

	executor := &OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: outputDir,
		Config:    cmd.config(),
		Cropper:   NewImagingCropper(),
	}
	return executor.Exec(ctx, ops)
}

func readOperations(path string) (Operations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open operations file: %w", err)
	}
	defer f.Close()

	var ops Operations
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var op Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("failed to parse operation %q: %w", line, err)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operations file: %w", err)
	}
	return ops, nil
}

type cliArgs struct {
	Serve serveCmd `cmd:"" default:"withargs" help:"Serve the interactive cropping UI"`
	Apply applyCmd `cmd:"" help:"Execute saved operations headlessly"`
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}

func openBrowser(addr string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", addr)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", addr)
	default:
		cmd = exec.Command("xdg-open", addr)
	}
	return cmd.Start()
}
