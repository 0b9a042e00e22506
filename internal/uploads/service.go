package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
	"github.com/jerseyleague/shop-backend/pkg/storage"
	"gorm.io/gorm"
)

const compensateTimeout = 10 * time.Second

type uploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) (*models.Upload, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error)
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service relays files into object storage and mirrors their metadata.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UploadInput is one file received by the relay.
type UploadInput struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
	UserID      *uuid.UUID
}

// UploadResult is returned to the admin screen after a successful relay.
type UploadResult struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
}

// ServiceParams bundles the upload relay dependencies.
type ServiceParams struct {
	Repo           uploadRepository
	Store          storage.ObjectStore
	PublicBaseURL  string
	MaxUploadBytes int64
	Metrics        *metrics.UploadMetrics
	Logger         *logger.Logger
}

type service struct {
	repo     uploadRepository
	store    storage.ObjectStore
	baseURL  string
	maxBytes int64
	metrics  *metrics.UploadMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the upload relay.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("upload repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if strings.TrimSpace(params.PublicBaseURL) == "" {
		return nil, fmt.Errorf("public base url required")
	}
	if params.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		store:    params.Store,
		baseURL:  params.PublicBaseURL,
		maxBytes: params.MaxUploadBytes,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if err := s.validate(input); err != nil {
		s.metrics.Inc(metrics.UploadOutcomeRejected)
		return nil, err
	}

	contentType, body, err := sniff(input.Reader)
	if err != nil {
		s.metrics.Inc(metrics.UploadOutcomeRejected)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file")
	}
	if !isAllowedImage(contentType) {
		s.metrics.Inc(metrics.UploadOutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeUnsupported, "only png, jpeg, webp, gif or avif images are accepted").
			WithDetails(map[string]any{"detected": contentType})
	}

	now := s.now()
	id := uuid.New()
	key := buildObjectKey(now, id, input.FileName, contentType)

	ctx = s.logg.WithFields(ctx, map[string]any{"object_key": key, "provider": s.store.Provider()})
	if declared := declaredType(input.ContentType); declared != "" && declared != contentType {
		s.logg.Warn(s.logg.WithField(ctx, "declared_type", declared), "upload content type mismatch, using sniffed type")
	}

	obj := storage.Object{
		Key:         key,
		ContentType: contentType,
		Size:        input.Size,
		Body:        io.LimitReader(body, input.Size),
	}
	if err := s.store.Put(ctx, obj); err != nil {
		s.metrics.Inc(metrics.UploadOutcomeFailed)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store object")
	}

	url := storage.PublicURL(s.baseURL, key)
	row := &models.Upload{
		ID:          id,
		UserID:      input.UserID,
		ObjectKey:   key,
		URL:         url,
		FileName:    strings.TrimSpace(input.FileName),
		ContentType: contentType,
		SizeBytes:   input.Size,
		Provider:    s.store.Provider(),
		Status:      enums.UploadStatusStored,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		s.compensate(ctx, key)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist upload metadata")
	}

	s.metrics.Inc(metrics.UploadOutcomeStored)
	s.metrics.AddBytes(input.Size)
	s.logg.Info(ctx, "upload stored")

	return &UploadResult{
		ID:          id,
		Key:         key,
		URL:         url,
		ContentType: contentType,
		SizeBytes:   input.Size,
	}, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load upload")
	}
	if row.Status == enums.UploadStatusDeleted {
		return nil
	}

	ctx = s.logg.WithField(ctx, "object_key", row.ObjectKey)
	if err := s.store.Delete(ctx, row.ObjectKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete object")
	}
	if err := s.repo.MarkDeleted(ctx, id, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark upload deleted")
	}
	s.logg.Info(ctx, "upload deleted")
	return nil
}

func (s *service) validate(input UploadInput) error {
	if input.Reader == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if input.Size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if input.Size > s.maxBytes {
		return pkgerrors.New(pkgerrors.CodeTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxBytes)).
			WithDetails(map[string]any{"max_bytes": s.maxBytes, "size_bytes": input.Size})
	}
	return nil
}

// compensate removes an object whose metadata row could not be written. It
// runs detached from the request so a cancelled client does not leave an
// orphan behind.
func (s *service) compensate(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if err := s.store.Delete(cctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.metrics.Inc(metrics.UploadOutcomeFailed)
		s.logg.Error(cctx, "compensating delete failed, object orphaned", err)
		return
	}
	s.metrics.Inc(metrics.UploadOutcomeCompensated)
	s.logg.Warn(cctx, "upload metadata write failed, object removed")
}

func buildObjectKey(now time.Time, id uuid.UUID, fileName, contentType string) string {
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = "file" + extensionByType[contentType]
	}
	return fmt.Sprintf("uploads/%04d/%02d/%s-%s", now.Year(), int(now.Month()), id.String(), clean)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || r == '?' || r == '#' || r == '%' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
