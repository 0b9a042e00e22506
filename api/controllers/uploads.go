package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/api/middleware"
	"github.com/jerseyleague/shop-backend/api/responses"
	"github.com/jerseyleague/shop-backend/api/validators"
	"github.com/jerseyleague/shop-backend/internal/uploads"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
)

const (
	uploadFormField = "file"
	// multipart framing allowance on top of the file cap
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

type uploadResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadFile relays the multipart "file" field to object storage and answers
// with the bare {"key": ...} payload the admin screen expects.
func UploadFile(svc uploads.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTooLarge, "file exceeds upload limit").
					WithDetails(map[string]any{"max_bytes": maxBytes}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expected multipart form data"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
				WithDetails(map[string]any{"field": uploadFormField}))
			return
		}
		defer file.Close()

		var userID *uuid.UUID
		if id := middleware.UserIDFromContext(r.Context()); id != uuid.Nil {
			userID = &id
		}

		result, err := svc.Upload(r.Context(), uploads.UploadInput{
			Reader:      file,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			UserID:      userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, uploadResponse{
			Key:         result.Key,
			URL:         result.URL,
			ContentType: result.ContentType,
			SizeBytes:   result.SizeBytes,
		})
	}
}

func UploadDelete(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		id, err := validators.ParseURLParamUUID(r, "uploadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
