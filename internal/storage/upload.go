package storage

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	errors "github.com/frahmantamala/payflow/internal"
)

const DefaultMaxUploadKB = 2048

var allowedImageTypes = []string{"image/jpeg", "image/png"}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Reader() io.Reader {
	return bytes.NewReader(u.Data)
}

// StoredName is the filename with an extension matching the detected image type.
func (u *Upload) StoredName() string {
	ext := strings.ToLower(path.Ext(u.Filename))
	switch u.ContentType {
	case "image/png":
		if ext == ".png" {
			return u.Filename
		}
		return strings.TrimSuffix(u.Filename, path.Ext(u.Filename)) + ".png"
	default:
		if ext == ".jpg" || ext == ".jpeg" {
			return u.Filename
		}
		return strings.TrimSuffix(u.Filename, path.Ext(u.Filename)) + ".jpg"
	}
}

type ImageValidator struct {
	maxBytes int64
}

func NewImageValidator(maxKB int64) *ImageValidator {
	if maxKB <= 0 {
		maxKB = DefaultMaxUploadKB
	}
	return &ImageValidator{maxBytes: maxKB * 1024}
}

// Validate reads the upload fully and accepts only jpeg/png images within the size limit.
func (v *ImageValidator) Validate(field, filename string, r io.Reader) (*Upload, *errors.AppError) {
	if r == nil {
		return nil, errors.NewValidationFieldError(field, fmt.Sprintf("%s is required", field), errors.ErrCodeValidationFailed)
	}

	data, err := io.ReadAll(io.LimitReader(r, v.maxBytes+1))
	if err != nil {
		return nil, errors.NewValidationFieldError(field, "could not read uploaded file", errors.ErrCodeInvalidFile)
	}
	if len(data) == 0 {
		return nil, errors.NewValidationFieldError(field, fmt.Sprintf("%s is required", field), errors.ErrCodeValidationFailed)
	}
	if int64(len(data)) > v.maxBytes {
		return nil, errors.NewValidationFieldError(field,
			fmt.Sprintf("%s must not be larger than %d kilobytes", field, v.maxBytes/1024), errors.ErrCodeFileTooLarge)
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
		return nil, errors.NewValidationFieldError(field,
			fmt.Sprintf("%s must be a file of type: jpeg, png, jpg", field), errors.ErrCodeUnsupportedFileType)
	}

	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return nil, errors.NewValidationFieldError(field, fmt.Sprintf("%s must be an image", field), errors.ErrCodeInvalidFile)
	}

	return &Upload{
		Filename:    filename,
		ContentType: mtype.String(),
		Data:        data,
	}, nil
}
