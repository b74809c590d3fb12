package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ImageInfo is the metadata the cropper math needs: natural dimensions
// plus the rotation from orientation metadata.
type ImageInfo struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Rotation int `json:"rotation"`
}

// ImageSize converts the metadata into the value type the math core uses.
func (i ImageInfo) ImageSize() ImageSize {
	return ImageSize{Width: float64(i.Width), Height: float64(i.Height), Rotation: i.Rotation}
}

type FileInfo struct {
	Name       string    `json:"name"`
	IsDir      bool      `json:"is_dir"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	URL        string    `json:"url"`
	Image      ImageInfo `json:"image"`
}

type Directory struct {
	Name  string     `json:"name"`
	Files []FileInfo `json:"files"`
}

func walkImages(rootPath string) (Directory, error) {
	extensions := []string{".jpg", ".jpeg"}
	var files []FileInfo

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		for _, ext := range extensions {
			if strings.ToLower(filepath.Ext(path)) == ext {
				info, err := d.Info()
				if err != nil {
					return fmt.Errorf("failed to get file info: %w", err)
				}

				relPath, err := filepath.Rel(rootPath, path)
				if err != nil {
					return fmt.Errorf("failed to get relative path: %w", err)
				}

				files = append(files, FileInfo{
					Name:       relPath,
					IsDir:      d.IsDir(),
					SizeBytes:  info.Size(),
					ModifiedAt: info.ModTime(),
				})
			}
		}
		return nil
	}); err != nil {
		return Directory{}, err
	}

	// A file that fails to parse stays in the listing with zero dimensions;
	// the client shows a placeholder and the crop math refuses to run on it.
	for i := range files {
		info, err := readJPEGInfo(filepath.Join(rootPath, files[i].Name))
		if err != nil {
			log.Ctx(context.Background()).Error().Err(err).Str("filename", files[i].Name).Msg("cannot read image metadata")
			continue
		}
		files[i].Image = info
	}

	return Directory{
		Name:  filepath.Base(rootPath),
		Files: files,
	}, nil
}

// readJPEGInfo walks the JPEG marker segments once, picking the EXIF
// orientation out of APP1 on the way to the SOF frame header that carries
// the dimensions. APP1 precedes SOF in every JPEG writer we care about.
func readJPEGInfo(filePath string) (ImageInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var buf [2]byte

	// SOI marker first.
	if _, err := io.ReadFull(file, buf[:]); err != nil {
		return ImageInfo{}, fmt.Errorf("failed to read SOI marker: %w", err)
	}
	if buf[0] != 0xFF || buf[1] != 0xD8 {
		return ImageInfo{}, errors.New("not a valid JPEG file")
	}

	var info ImageInfo
	for {
		if _, err := io.ReadFull(file, buf[:]); err != nil {
			return ImageInfo{}, err
		}
		if buf[0] != 0xFF {
			return ImageInfo{}, errors.New("invalid JPEG format")
		}

		// Skip padding bytes (0xFF).
		for buf[1] == 0xFF {
			if _, err := io.ReadFull(file, buf[1:2]); err != nil {
				return ImageInfo{}, err
			}
		}
		marker := buf[1]

		if _, err := io.ReadFull(file, buf[:]); err != nil {
			return ImageInfo{}, err
		}
		length := binary.BigEndian.Uint16(buf[:])
		if length < 2 {
			return ImageInfo{}, errors.New("invalid JPEG segment length")
		}

		switch {
		case marker == 0xE1:
			// APP1, usually EXIF.
			segment := make([]byte, length-2)
			if _, err := io.ReadFull(file, segment); err != nil {
				return ImageInfo{}, err
			}
			if rotation, ok := exifRotation(segment); ok {
				info.Rotation = rotation
			}

		case marker >= 0xC0 && marker <= 0xC3:
			// SOF0-SOF3 carry the frame dimensions.
			segment := make([]byte, length-2)
			if _, err := io.ReadFull(file, segment); err != nil {
				return ImageInfo{}, err
			}
			if len(segment) < 5 {
				return ImageInfo{}, errors.New("truncated SOF segment")
			}
			info.Height = int(binary.BigEndian.Uint16(segment[1:3]))
			info.Width = int(binary.BigEndian.Uint16(segment[3:5]))
			return info, nil

		default:
			if _, err := file.Seek(int64(length-2), io.SeekCurrent); err != nil {
				return ImageInfo{}, err
			}
		}
	}
}

// exifRotation extracts the orientation tag (0x0112) from an APP1 EXIF
// payload and maps it onto a rotation in degrees. Mirrored orientations
// map to their rotation component.
func exifRotation(segment []byte) (rotation int, ok bool) {
	if len(segment) < 14 || string(segment[:6]) != "Exif\x00\x00" {
		return 0, false
	}
	tiff := segment[6:]

	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, false
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0, false
	}

	ifd := int(order.Uint32(tiff[4:8]))
	if ifd < 0 || ifd+2 > len(tiff) {
		return 0, false
	}
	count := int(order.Uint16(tiff[ifd : ifd+2]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(tiff) {
			return 0, false
		}
		if order.Uint16(tiff[entry:entry+2]) != 0x0112 {
			continue
		}
		switch order.Uint16(tiff[entry+8 : entry+10]) {
		case 3, 4:
			return 180, true
		case 6, 7:
			return 90, true
		case 5, 8:
			return 270, true
		default:
			return 0, true
		}
	}
	return 0, false
}
