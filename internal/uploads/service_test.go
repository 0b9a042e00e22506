package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/dbtest"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/metrics"
	"github.com/jerseyleague/shop-backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const testBase = "https://jls-media.s3.us-east-1.amazonaws.com"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type stubStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
	deleted   []string
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *stubStore) Put(ctx context.Context, obj storage.Object) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.Key] = data
	s.types[obj.Key] = obj.ContentType
	return nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *stubStore) Ping(context.Context) error { return nil }
func (s *stubStore) Provider() string           { return "stub" }

type stubUploadRepo struct {
	rows      map[uuid.UUID]*models.Upload
	createErr error
}

func (r *stubUploadRepo) Create(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.rows == nil {
		r.rows = map[uuid.UUID]*models.Upload{}
	}
	r.rows[upload.ID] = upload
	return upload, nil
}

func (r *stubUploadRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Upload, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (r *stubUploadRepo) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	row, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = enums.UploadStatusDeleted
	row.DeletedAt = &at
	return nil
}

type uploadFixture struct {
	svc     *service
	store   *stubStore
	repo    *stubUploadRepo
	metrics *metrics.UploadMetrics
	reg     *prometheus.Registry
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	fx := &uploadFixture{
		store:   newStubStore(),
		repo:    &stubUploadRepo{},
		metrics: metrics.NewUploadMetrics(reg),
		reg:     reg,
	}
	svc, err := NewService(ServiceParams{
		Repo:           fx.repo,
		Store:          fx.store,
		PublicBaseURL:  testBase,
		MaxUploadBytes: 1024,
		Metrics:        fx.metrics,
		Logger:         logger.Nop(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fx.svc = svc.(*service)
	fx.svc.now = func() time.Time { return time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC) }
	return fx
}

func (fx *uploadFixture) outcome(t *testing.T, outcome string) float64 {
	t.Helper()
	families, err := fx.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "uploads_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func pngBody(extra int) []byte {
	return append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, extra)...)
}

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	fx := newUploadFixture(t)
	body := pngBody(64)
	userID := uuid.New()

	res, err := fx.svc.Upload(context.Background(), UploadInput{
		Reader:      bytes.NewReader(body),
		FileName:    "Home Kit 25.png",
		ContentType: "application/octet-stream",
		Size:        int64(len(body)),
		UserID:      &userID,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	wantPrefix := "uploads/2026/05/" + res.ID.String() + "-"
	if !strings.HasPrefix(res.Key, wantPrefix) || !strings.HasSuffix(res.Key, "Home-Kit-25.png") {
		t.Fatalf("unexpected key %q", res.Key)
	}
	if res.URL != testBase+"/"+res.Key {
		t.Fatalf("unexpected url %q", res.URL)
	}
	if res.ContentType != "image/png" || res.SizeBytes != int64(len(body)) {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.Equal(fx.store.objects[res.Key], body) {
		t.Fatal("stored object does not match uploaded body")
	}
	if fx.store.types[res.Key] != "image/png" {
		t.Fatalf("expected sniffed content type on object, got %q", fx.store.types[res.Key])
	}

	row := fx.repo.rows[res.ID]
	if row == nil {
		t.Fatal("expected metadata row")
	}
	if row.ObjectKey != res.Key || row.Provider != "stub" || row.Status != enums.UploadStatusStored {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.UserID == nil || *row.UserID != userID {
		t.Fatalf("expected uploader recorded, got %v", row.UserID)
	}
	if got := fx.outcome(t, metrics.UploadOutcomeStored); got != 1 {
		t.Fatalf("expected stored counter 1, got %v", got)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	fx := newUploadFixture(t)
	body := pngBody(2048)

	_, err := fx.svc.Upload(context.Background(), UploadInput{
		Reader:   bytes.NewReader(body),
		FileName: "big.png",
		Size:     int64(len(body)),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	if len(fx.store.objects) != 0 {
		t.Fatal("nothing should be stored")
	}
	if got := fx.outcome(t, metrics.UploadOutcomeRejected); got != 1 {
		t.Fatalf("expected rejected counter 1, got %v", got)
	}
}

func TestUploadRejectsEmptyAndMissingFile(t *testing.T) {
	fx := newUploadFixture(t)

	if _, err := fx.svc.Upload(context.Background(), UploadInput{FileName: "x.png", Size: 10}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for missing reader, got %v", err)
	}
	if _, err := fx.svc.Upload(context.Background(), UploadInput{Reader: bytes.NewReader(nil), Size: 0}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for empty file, got %v", err)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	fx := newUploadFixture(t)
	body := []byte("<html><body>not an image</body></html>")

	_, err := fx.svc.Upload(context.Background(), UploadInput{
		Reader:      bytes.NewReader(body),
		FileName:    "kit.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if len(fx.store.objects) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestUploadStoreFailureIsDependencyError(t *testing.T) {
	fx := newUploadFixture(t)
	fx.store.putErr = errors.New("bucket unavailable")
	body := pngBody(8)

	_, err := fx.svc.Upload(context.Background(), UploadInput{Reader: bytes.NewReader(body), FileName: "a.png", Size: int64(len(body))})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(fx.repo.rows) != 0 {
		t.Fatal("metadata must not be written when the object is missing")
	}
	if got := fx.outcome(t, metrics.UploadOutcomeFailed); got != 1 {
		t.Fatalf("expected failed counter 1, got %v", got)
	}
}

func TestUploadCompensatesWhenMetadataFails(t *testing.T) {
	fx := newUploadFixture(t)
	fx.repo.createErr = errors.New("db down")
	body := pngBody(8)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := fx.svc.Upload(ctx, UploadInput{Reader: bytes.NewReader(body), FileName: "a.png", Size: int64(len(body))})
	cancel()
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(fx.store.objects) != 0 {
		t.Fatalf("object should have been removed, still have %d", len(fx.store.objects))
	}
	if len(fx.store.deleted) != 1 || !strings.HasPrefix(fx.store.deleted[0], "uploads/2026/05/") {
		t.Fatalf("unexpected compensating deletes %v", fx.store.deleted)
	}
	if got := fx.outcome(t, metrics.UploadOutcomeCompensated); got != 1 {
		t.Fatalf("expected compensated counter 1, got %v", got)
	}
}

func TestDeleteRemovesObjectAndMarksRow(t *testing.T) {
	fx := newUploadFixture(t)
	body := pngBody(8)
	res, err := fx.svc.Upload(context.Background(), UploadInput{Reader: bytes.NewReader(body), FileName: "a.png", Size: int64(len(body))})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := fx.svc.Delete(context.Background(), res.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fx.store.objects[res.Key]; ok {
		t.Fatal("object should be gone")
	}
	row := fx.repo.rows[res.ID]
	if row.Status != enums.UploadStatusDeleted || row.DeletedAt == nil {
		t.Fatalf("row not marked deleted: %+v", row)
	}

	if err := fx.svc.Delete(context.Background(), res.ID); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if len(fx.store.deleted) != 1 {
		t.Fatalf("expected a single provider delete, got %v", fx.store.deleted)
	}

	if err := fx.svc.Delete(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteToleratesMissingObject(t *testing.T) {
	fx := newUploadFixture(t)
	id := uuid.New()
	fx.repo.rows = map[uuid.UUID]*models.Upload{id: {ID: id, ObjectKey: "uploads/gone.png", Status: enums.UploadStatusStored}}

	if err := fx.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fx.repo.rows[id].Status != enums.UploadStatusDeleted {
		t.Fatal("row should be marked deleted even when the object was already gone")
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"kit.png":                "kit.png",
		"../../etc/passwd":       "passwd",
		`C:\photos\Home Kit.png`: "Home-Kit.png",
		"  spaced name .jpg ":    "spaced-name-.jpg",
		"we?ird#na%me.gif":       "weirdname.gif",
		"...":                    "",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildObjectKeyFallsBackToExtension(t *testing.T) {
	id := uuid.MustParse("3b0a2c1e-8d8f-4a53-9a39-8c1c8b0f6f11")
	at := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	if got := buildObjectKey(at, id, "../", "image/webp"); got != "uploads/2026/01/"+id.String()+"-file.webp" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNewServiceValidatesParams(t *testing.T) {
	base := ServiceParams{
		Repo:           &stubUploadRepo{},
		Store:          newStubStore(),
		PublicBaseURL:  testBase,
		MaxUploadBytes: 1,
		Logger:         logger.Nop(),
	}
	mutations := map[string]func(p *ServiceParams){
		"repo":   func(p *ServiceParams) { p.Repo = nil },
		"store":  func(p *ServiceParams) { p.Store = nil },
		"base":   func(p *ServiceParams) { p.PublicBaseURL = "" },
		"max":    func(p *ServiceParams) { p.MaxUploadBytes = 0 },
		"logger": func(p *ServiceParams) { p.Logger = nil },
	}
	for name, mutate := range mutations {
		p := base
		mutate(&p)
		if _, err := NewService(p); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRepositoryMarkDeleted(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	row, err := repo.Create(ctx, &models.Upload{
		ObjectKey:   "uploads/2026/05/x.png",
		URL:         testBase + "/uploads/2026/05/x.png",
		FileName:    "x.png",
		ContentType: "image/png",
		SizeBytes:   10,
		Provider:    "s3",
		Status:      enums.UploadStatusStored,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	at := time.Date(2026, 5, 15, 8, 0, 0, 0, time.UTC)
	if err := repo.MarkDeleted(ctx, row.ID, at); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	got, err := repo.FindByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != enums.UploadStatusDeleted || got.DeletedAt == nil || !got.DeletedAt.Equal(at) {
		t.Fatalf("unexpected row %+v", got)
	}
	if _, err := repo.FindByID(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
