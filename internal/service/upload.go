package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
)

var (
	// ErrFileRequired indicates the request carried no file.
	ErrFileRequired = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrStorageUnavailable indicates no file storage is configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

// DefaultUploadMaxBytes bounds uploads when no limit is configured.
const DefaultUploadMaxBytes int64 = 20 << 20

// FileStorage abstracts upload destinations. Upload returns the public URL
// and a key that Delete accepts.
type FileStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader) (string, string, error)
	Delete(ctx context.Context, key string) error
}

// storedFile describes a validated and stored upload.
type storedFile struct {
	Name      string
	URL       string
	Key       string
	MimeType  string
	SizeBytes int64
}

// fileIntake validates uploads by size and sniffed type before storing them.
type fileIntake struct {
	storage FileStorage
	maxSize int64
	tracer  trace.Tracer
}

func (f fileIntake) store(ctx context.Context, folder string, file *multipart.FileHeader) (storedFile, error) {
	ctx, span := f.tracer.Start(ctx, "upload.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if f.storage == nil {
		span.SetStatus(codes.Error, "storage unavailable")
		return storedFile{}, ErrStorageUnavailable
	}
	if file == nil {
		span.SetStatus(codes.Error, "validation failed")
		return storedFile{}, ErrFileRequired
	}

	span.SetAttributes(
		attribute.Int64("upload.max_bytes", f.maxSize),
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > f.maxSize {
		return storedFile{}, f.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return storedFile{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, f.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return storedFile{}, err
	}
	if int64(buf.Len()) > f.maxSize {
		return storedFile{}, f.reject(span, "size", ErrUploadTooLarge)
	}

	detected := mimetype.Detect(buf.Bytes())
	fileType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(detected) {
		return storedFile{}, f.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	if err := f.scan(buf.Bytes(), detected); err != nil {
		return storedFile{}, f.reject(span, "scan", err)
	}

	name := sanitizeFileName(file.Filename, detected.Extension())
	url, key, err := f.storage.Upload(ctx, folder, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return storedFile{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")

	return storedFile{
		Name:      name,
		URL:       url,
		Key:       key,
		MimeType:  fileType,
		SizeBytes: int64(buf.Len()),
	}, nil
}

func (f fileIntake) reject(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}

// scan rejects zip-based archives whose uncompressed size suggests a zip bomb.
// Office documents are zip containers too and pass through the same check.
func (f fileIntake) scan(payload []byte, detected *mimetype.MIME) error {
	if !detected.Is("application/zip") && !inheritsZip(detected) {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, entry := range reader.File {
		totalUncompressed += entry.UncompressedSize64
		if totalUncompressed > uint64(f.maxSize*20) {
			return fmt.Errorf("archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func inheritsZip(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

var allowedMimes = []string{
	"application/pdf",
	"application/zip",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"text/csv",
}

func isAllowedType(detected *mimetype.MIME) bool {
	if strings.HasPrefix(detected.String(), "image/") {
		return true
	}
	for _, allowed := range allowedMimes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
