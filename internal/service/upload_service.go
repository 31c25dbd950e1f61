package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/observability"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadRequired indicates no file was attached.
	ErrUploadRequired = errors.New("file is required")
)

// FileStorage abstracts the blob store holding documents and photos.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (url string, publicID string, err error)
	Delete(ctx context.Context, publicID string) error
}

// UploadService validates files, stores them and keeps an index per owner.
type UploadService interface {
	Store(ctx context.Context, file *multipart.FileHeader, ownerType string, ownerID uint, allowed ...string) (dto.UploadResponse, error)
	RemoveOwned(ctx context.Context, ownerType string, ownerID uint) (int64, []error)
}

// Accepted upload kinds.
const (
	UploadKindImage = "image"
	UploadKindPDF   = "application/pdf"
)

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/campus-evote-api/internal/service/upload"),
	}
}

func (s *uploadService) Store(ctx context.Context, file *multipart.FileHeader, ownerType string, ownerID uint, allowed ...string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.owner_type", ownerType),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		span.RecordError(ErrUploadRequired)
		span.SetStatus(codes.Error, "validation failed")
		return dto.UploadResponse{}, ErrUploadRequired
	}

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType, allowed) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UploadResponse{}, ErrUploadTypeNotAllowed
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename)

	url, publicID, err := s.storage.Upload(ctx, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	upload := models.UploadRecord{
		OwnerType: ownerType,
		OwnerID:   ownerID,
		FileName:  sanitizedName,
		URL:       url,
		PublicID:  publicID,
		MimeType:  fileType,
		SizeBytes: int64(buf.Len()),
		Checksum:  hex.EncodeToString(checksum[:]),
	}

	if err := s.repo.Create(ctx, &upload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		if delErr := s.storage.Delete(ctx, publicID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("public_id", publicID).Msg("failed to remove orphaned upload")
		}
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")

	return dto.UploadResponse{
		URL:       upload.URL,
		PublicID:  upload.PublicID,
		FileName:  upload.FileName,
		MimeType:  upload.MimeType,
		SizeBytes: upload.SizeBytes,
		Checksum:  upload.Checksum,
	}, nil
}

// RemoveOwned deletes every blob of the owner and its index row. It keeps going after a
// failure and returns the number removed together with every error met.
func (s *uploadService) RemoveOwned(ctx context.Context, ownerType string, ownerID uint) (int64, []error) {
	records, err := s.repo.ListByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return 0, []error{err}
	}

	var removed int64
	var failures []error
	for _, upload := range records {
		if err := s.storage.Delete(ctx, upload.PublicID); err != nil {
			s.logger.Warn().Err(err).Str("public_id", upload.PublicID).Msg("failed to delete stored file")
			failures = append(failures, fmt.Errorf("delete %s: %w", upload.FileName, err))
			continue
		}
		if err := s.repo.Delete(ctx, upload.ID); err != nil {
			failures = append(failures, fmt.Errorf("unindex %s: %w", upload.FileName, err))
			continue
		}
		removed++
	}

	return removed, failures
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(lower, "image/") {
		return UploadKindImage
	}
	return lower
}

func isAllowedType(m string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = []string{UploadKindImage, UploadKindPDF}
	}
	for _, kind := range allowed {
		if m == kind {
			return true
		}
	}
	return false
}
