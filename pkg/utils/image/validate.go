package image

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("photo exceeds the 10MB size limit")
	ErrFileType     = errors.New("unsupported photo type, allowed: JPG, PNG, WEBP")
	ErrFileRequired = errors.New("no photo provided")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ValidateUpload checks size and extension before the decode step touches the
// file. Shares MaxImageSize with ProcessImage so the two stages can never
// disagree on the limit.
func ValidateUpload(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}

	if file.Size > MaxImageSize {
		return ErrFileSize
	}

	if !allowedExtensions[filepath.Ext(strings.ToLower(file.Filename))] {
		return ErrFileType
	}

	return nil
}
