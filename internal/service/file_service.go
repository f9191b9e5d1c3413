package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harborchat/harbor-api/internal/auth"
	"github.com/harborchat/harbor-api/internal/dto"
	"github.com/harborchat/harbor-api/internal/observability"
)

// ErrUploadTooLarge indicates the payload exceeded the configured limit.
var ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")

// UploadTicket carries signed parameters for a direct client upload.
type UploadTicket struct {
	URL       string
	Params    map[string]string
	ExpiresAt time.Time
}

// StoredFile describes an asset persisted by the storage backend.
type StoredFile struct {
	StorageID string
	URL       string
	FileName  string
}

// FileStorage abstracts the external storage collaborator.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (StoredFile, error)
	SignDirectUpload(ctx context.Context) (UploadTicket, error)
	ResolveURL(ctx context.Context, storageID string) (string, error)
}

// FileService handles attachment uploads and URL resolution.
type FileService interface {
	IssueUploadTicket(ctx context.Context) (dto.UploadTicketResponse, error)
	Upload(ctx context.Context, file *multipart.FileHeader) (dto.FileResponse, error)
	ResolveURL(ctx context.Context, storageID string) (dto.FileResponse, error)
}

type fileService struct {
	storage FileStorage
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewFileService constructs a file service.
func NewFileService(storage FileStorage, maxSizeMB int, logger zerolog.Logger) FileService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &fileService{
		storage: storage,
		logger:  logger.With().Str("component", "file_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/harborchat/harbor-api/internal/service/file"),
	}
}

// IssueUploadTicket mints short-lived direct-upload credentials. Upload
// targets are only issued to authenticated callers.
func (s *fileService) IssueUploadTicket(ctx context.Context) (dto.UploadTicketResponse, error) {
	if auth.IdentityFromContext(ctx) == nil {
		return dto.UploadTicketResponse{}, ErrUnauthenticated
	}

	ticket, err := s.storage.SignDirectUpload(ctx)
	if err != nil {
		return dto.UploadTicketResponse{}, err
	}

	return dto.UploadTicketResponse{
		UploadURL: ticket.URL,
		Params:    ticket.Params,
		ExpiresAt: ticket.ExpiresAt,
	}, nil
}

func (s *fileService) Upload(ctx context.Context, file *multipart.FileHeader) (dto.FileResponse, error) {
	if auth.IdentityFromContext(ctx) == nil {
		return dto.FileResponse{}, ErrUnauthenticated
	}

	ctx, span := s.tracer.Start(ctx, "file.upload")
	defer span.End()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		return dto.FileResponse{}, err
	}
	if file.Size > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		return dto.FileResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.FileResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.FileResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrUploadTooLarge)
		return dto.FileResponse{}, ErrUploadTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	span.SetAttributes(
		attribute.String("file.detected_mime", mime.String()),
		attribute.Int64("file.size_bytes", int64(buf.Len())),
	)

	stored, err := s.storage.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		return dto.FileResponse{}, err
	}

	observability.FileUploads().WithLabelValues(mime.String()).Inc()
	s.logger.Info().Str("storage_id", stored.StorageID).Str("mime", mime.String()).Msg("attachment uploaded")

	return dto.FileResponse{
		StorageID: stored.StorageID,
		URL:       stored.URL,
		FileName:  stored.FileName,
		MimeType:  mime.String(),
		SizeBytes: int64(buf.Len()),
	}, nil
}

// ResolveURL maps a storage id to a durable delivery URL. No ownership check
// is performed; anyone holding the id may resolve it.
func (s *fileService) ResolveURL(ctx context.Context, storageID string) (dto.FileResponse, error) {
	url, err := s.storage.ResolveURL(ctx, storageID)
	if err != nil {
		return dto.FileResponse{}, err
	}
	return dto.FileResponse{StorageID: storageID, URL: url}, nil
}
