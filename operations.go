package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

type Operations = []Operation

type Operation struct {
	Crop *CropOperation
	Pick *PickOperation
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var op struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &op); err != nil {
		return fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	switch op.Type {
	case "crop":
		var crop CropOperation
		if err := json.Unmarshal(data, &crop); err != nil {
			return fmt.Errorf("failed to unmarshal crop operation: %w", err)
		}
		o.Crop = &crop
	case "pick":
		var pick PickOperation
		if err := json.Unmarshal(data, &pick); err != nil {
			return fmt.Errorf("failed to unmarshal pick operation: %w", err)
		}
		o.Pick = &pick
	default:
		return fmt.Errorf("unknown operation %q", op.Type)
	}
	return nil
}

// MarshalJSON keeps the type tag, so dumped operations can be fed back to
// the apply command unchanged.
func (o Operation) MarshalJSON() ([]byte, error) {
	switch {
	case o.Crop != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*CropOperation
		}{Type: "crop", CropOperation: o.Crop})
	case o.Pick != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*PickOperation
		}{Type: "pick", PickOperation: o.Pick})
	default:
		return nil, fmt.Errorf("empty operation")
	}
}

// CropSpec is the committed pan/zoom state for one image, as captured by
// the interactive client: the final transform plus the output quality.
type CropSpec struct {
	Transform
	// Quality scales the output size; 1 keeps the source resolution of the
	// framed region, 0 is a valid boundary producing an empty output size.
	Quality float64 `json:"quality"`
}

func (c CropSpec) String() string {
	return fmt.Sprintf("crop(s=%.4f,tx=%.2f,ty=%.2f,q=%.2f)", c.Scale, c.TranslateX, c.TranslateY, c.Quality)
}

func (c CropSpec) ID() string {
	m := md5.New()
	_, err := m.Write([]byte(c.String()))
	if err != nil {
		log.Error().Err(err).Msg("failed to hash crop string")
		return ""
	}
	return fmt.Sprintf("%x", m.Sum(nil))
}

type CropOperation struct {
	Filename string   `json:"filename"`
	Crop     CropSpec `json:"crop"`
}

type PickOperation struct {
	Filename string `json:"filename"`
}

// OperationExecutor runs committed operations against the source files.
// Each crop gets its own Cropper session so the projected rectangle is
// clamped the same way the interactive path clamps.
type OperationExecutor struct {
	BaseDir   string
	OutputDir string
	Config    Config
	Cropper   PixelCropper
}

func (r OperationExecutor) Exec(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		log.Ctx(ctx).Warn().Msg("no operations to execute")
		return nil
	}

	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	for _, op := range ops {
		op := op
		pooler.Go(func(ctx context.Context) error {
			if err := r.executeOperation(ctx, op); err != nil {
				log.Ctx(ctx).Error().Err(err).
					Interface("op", op).
					Msg("failed to execute operation")
				return err
			}
			return nil
		})
	}

	if err := pooler.Wait(); err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Msg("finished with errors")
		return err
	}

	return nil
}

func (r OperationExecutor) executeOperation(ctx context.Context, op Operation) error {
	if op.Crop != nil {
		_, _, err := r.executeCrop(ctx, *op.Crop)
		return err
	} else if op.Pick != nil {
		return r.executePick(ctx, *op.Pick)
	}
	return nil
}

func (r OperationExecutor) executeCrop(ctx context.Context, op CropOperation) (string, CropRect, error) {
	log.Ctx(ctx).Info().Str("filename", op.Filename).Stringer("crop", op.Crop).Msg("cropping")

	sourcePath := filepath.Join(r.BaseDir, op.Filename)
	info, err := readJPEGInfo(sourcePath)
	if err != nil {
		return "", CropRect{}, fmt.Errorf("failed to read metadata of %s: %w", sourcePath, err)
	}

	rect, err := projectOperation(r.Config, info, op.Crop)
	if err != nil {
		return "", CropRect{}, fmt.Errorf("failed to project crop for %s: %w", op.Filename, err)
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		return "", CropRect{}, fmt.Errorf("failed to open file %s: %w", sourcePath, err)
	}
	defer f.Close()
	var b bytes.Buffer
	if err := r.Cropper.Crop(ctx, f, &b, rect); err != nil {
		return "", CropRect{}, fmt.Errorf("crop execution failed for %s: %w", op.Filename, err)
	}

	if err := os.MkdirAll(r.OutputDir, 0755); err != nil {
		return "", CropRect{}, fmt.Errorf("failed to create output directory %s: %w", r.OutputDir, err)
	}
	newName := fmt.Sprintf("%s-%s.jpg", filepath.Base(op.Filename), op.Crop.ID())
	croppedPath := filepath.Join(r.OutputDir, newName)
	wf, err := os.Create(croppedPath)
	if err != nil {
		return "", CropRect{}, fmt.Errorf("failed to create cropped file %s: %w", newName, err)
	}
	defer wf.Close()
	if _, err := b.WriteTo(wf); err != nil {
		return "", CropRect{}, fmt.Errorf("failed to write cropped data to file %s: %w", newName, err)
	}
	return newName, rect, nil
}

// projectOperation replays a committed crop through a fresh session: fit
// the image, install the snapshot (which clamps it onto legal state) and
// project the rectangle.
func projectOperation(cfg Config, info ImageInfo, spec CropSpec) (CropRect, error) {
	cropper, err := NewCropper(cfg)
	if err != nil {
		return CropRect{}, err
	}
	if err := cropper.SetImage(info.ImageSize()); err != nil {
		return CropRect{}, err
	}
	if _, err := cropper.SetTransform(spec.Transform); err != nil {
		return CropRect{}, err
	}
	return cropper.CropRect(spec.Quality)
}

func (r OperationExecutor) executePick(ctx context.Context, op PickOperation) error {
	log.Ctx(ctx).Info().Str("filename", op.Filename).Msg("picking")
	sourcePath := filepath.Join(r.BaseDir, op.Filename)
	savePath := filepath.Join(r.OutputDir, op.Filename)
	if err := copyFile(sourcePath, savePath); err != nil {
		return fmt.Errorf("failed to pick file %s: %w", op.Filename, err)
	}
	return nil
}

func copyFile(sourcePath, destPath string) error {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", sourcePath, err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file from %s to %s: %w", sourcePath, destPath, err)
	}

	return nil
}
