// Package export produces Excel workbooks of filtered change events.
// Exports run as background jobs: a POST queues a job, status is polled
// by id, and the finished file is fetched with a signed short-lived
// token.
package export

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

const sheetName = "CVE Changes"

var workbookHeaders = []string{"ID", "CVE ID", "Event Name", "CVE Change ID", "Source Identifier", "Created", "Details"}

var errJobNotRunnable = errors.New("export job is no longer runnable")

// Job tracks one export from queue to downloadable file. Jobs live in
// memory only; restarting the server forgets them.
type Job struct {
	ID           uuid.UUID `json:"id"`
	Status       JobStatus `json:"status"`
	RowsExported int       `json:"rowsExported"`
	FileByteSize int64     `json:"fileByteSize,omitempty"`
	Error        string    `json:"error,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	DownloadURL  string    `json:"downloadUrl,omitempty"`

	filePath string
	filter   domain.ChangeFilter
}

type Service struct {
	changes repository.ChangeRepository
	logger  *zap.Logger

	exportDir  string
	jobTimeout time.Duration
	pageSize   int
	maxRows    int64
	now        func() time.Time

	downloadSigner *downloadSigner

	mu   sync.Mutex
	jobs map[uuid.UUID]*Job

	workerCancels sync.Map // map[uuid.UUID]context.CancelFunc
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithJobTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.jobTimeout = timeout
		}
	}
}

func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMaxRows caps how many rows a single export may emit. Zero leaves
// exports unbounded.
func WithMaxRows(max int64) Option {
	return func(s *Service) {
		if max >= 0 {
			s.maxRows = max
		}
	}
}

// WithDownloadTokenTTL customizes the TTL for generated download links.
func WithDownloadTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.downloadSigner = newDownloadSigner(ttl)
		}
	}
}

func NewService(changes repository.ChangeRepository, logger *zap.Logger, opts ...Option) *Service {
	service := &Service{
		changes:    changes,
		logger:     logger,
		exportDir:  filepath.Join(os.TempDir(), "cvetrack-exports"),
		jobTimeout: 30 * time.Minute,
		pageSize:   1000,
		now:        time.Now,
		jobs:       make(map[uuid.UUID]*Job),
	}
	for _, opt := range opts {
		opt(service)
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.pageSize <= 0 {
		service.pageSize = 1000
	}
	if service.jobTimeout <= 0 {
		service.jobTimeout = 30 * time.Minute
	}
	if strings.TrimSpace(service.exportDir) == "" {
		service.exportDir = filepath.Join(os.TempDir(), "cvetrack-exports")
	}
	if service.downloadSigner == nil {
		service.downloadSigner = newDownloadSigner(5 * time.Minute)
	}
	return service
}

// Queue registers a pending export for the given filter and starts its
// worker. Warnings from filter parsing are carried on the job so status
// polls surface them.
func (s *Service) Queue(_ context.Context, filter domain.ChangeFilter, warnings []string) (Job, error) {
	job := &Job{
		ID:        uuid.New(),
		Status:    JobStatusPending,
		Warnings:  warnings,
		CreatedAt: s.now().UTC(),
		UpdatedAt: s.now().UTC(),
		filter:    filter,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.launchWorker(job.ID)
	return s.snapshot(job.ID)
}

// GetJob returns the current state of a job, with a download URL
// attached once the file is ready.
func (s *Service) GetJob(id uuid.UUID) (Job, error) {
	return s.snapshot(id)
}

func (s *Service) snapshot(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, repository.ErrNotFound
	}
	copied := *job
	if copied.Status == JobStatusCompleted && copied.filePath != "" {
		copied.DownloadURL = s.buildDownloadURL(copied.ID)
	}
	return copied, nil
}

// CancelJob stops a pending or running export.
func (s *Service) CancelJob(id uuid.UUID) (Job, error) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return Job{}, repository.ErrNotFound
	}
	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		status := job.Status
		s.mu.Unlock()
		return Job{}, fmt.Errorf("export job in status %s cannot be cancelled", status)
	}
	job.Status = JobStatusCancelled
	job.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	if cancel, ok := s.workerCancels.LoadAndDelete(id); ok {
		if fn, okCast := cancel.(context.CancelFunc); okCast {
			fn()
		}
	}
	return s.snapshot(id)
}

func (s *Service) buildDownloadURL(jobID uuid.UUID) string {
	token := s.downloadSigner.Sign(jobID, s.now())
	values := url.Values{}
	values.Set("id", jobID.String())
	values.Set("token", token)
	return fmt.Sprintf("/api/cvechanges/export/download?%s", values.Encode())
}

// ValidateDownloadToken ensures the token is valid for the given job.
func (s *Service) ValidateDownloadToken(jobID uuid.UUID, token string) error {
	return s.downloadSigner.Verify(jobID, token, s.now())
}

// OpenJobFile opens the completed workbook for streaming to the client.
func (s *Service) OpenJobFile(job Job) (*os.File, error) {
	if job.Status != JobStatusCompleted {
		return nil, errors.New("export is not completed")
	}
	if strings.TrimSpace(job.filePath) == "" {
		return nil, errors.New("export file is unavailable")
	}
	file, err := os.Open(job.filePath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

func (s *Service) launchWorker(jobID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	s.workerCancels.Store(jobID, cancel)
	go func() {
		defer func() {
			cancel()
			s.workerCancels.Delete(jobID)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("export worker panicked", zap.String("job_id", jobID.String()), zap.Any("panic", rec))
				s.failJob(jobID, fmt.Errorf("panic: %v", rec))
			}
		}()
		if err := s.runExport(ctx, jobID); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				s.logger.Info("export job cancelled", zap.String("job_id", jobID.String()))
			case errors.Is(err, errJobNotRunnable):
				s.logger.Info("export job not runnable, skipping", zap.String("job_id", jobID.String()))
			default:
				s.failJob(jobID, err)
			}
		}
	}()
}

func (s *Service) markRunning(jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != JobStatusPending {
		return errJobNotRunnable
	}
	job.Status = JobStatusRunning
	job.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Service) updateProgress(jobID uuid.UUID, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.RowsExported = rows
		job.UpdatedAt = s.now().UTC()
	}
}

func (s *Service) markCompleted(jobID uuid.UUID, rows int, path string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = JobStatusCompleted
		job.RowsExported = rows
		job.filePath = path
		job.FileByteSize = size
		job.UpdatedAt = s.now().UTC()
	}
}

func (s *Service) failJob(jobID uuid.UUID, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = JobStatusFailed
		job.Error = truncateError(err)
		job.UpdatedAt = s.now().UTC()
	}
	s.mu.Unlock()
	s.logger.Error("export job failed", zap.String("job_id", jobID.String()), zap.Error(err))
}

func (s *Service) runExport(ctx context.Context, jobID uuid.UUID) error {
	if err := s.markRunning(jobID); err != nil {
		return err
	}
	s.mu.Lock()
	filter := s.jobs[jobID].filter
	s.mu.Unlock()

	if err := s.ensureExportDirectory(); err != nil {
		return err
	}

	workbook := excelize.NewFile()
	defer func() { _ = workbook.Close() }()
	if err := workbook.SetSheetName(workbook.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name export sheet: %w", err)
	}
	stream, err := workbook.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	headerRow := make([]any, len(workbookHeaders))
	for i, header := range workbookHeaders {
		headerRow[i] = header
	}
	if err := stream.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rowsExported := 0
	err = s.changes.IterateAll(ctx, filter, s.pageSize, s.maxRows, func(batch []domain.ChangeEvent) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, change := range batch {
			rowsExported++
			cell, cellErr := excelize.CoordinatesToCellName(1, rowsExported+1)
			if cellErr != nil {
				return fmt.Errorf("compute cell: %w", cellErr)
			}
			if rowErr := stream.SetRow(cell, workbookRow(change)); rowErr != nil {
				return fmt.Errorf("write row: %w", rowErr)
			}
		}
		s.updateProgress(jobID, rowsExported)
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream changes: %w", err)
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush stream writer: %w", err)
	}

	finalPath := filepath.Join(s.exportDir, fmt.Sprintf("cve-changes-%s.xlsx", jobID.String()))
	if err := workbook.SaveAs(finalPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return fmt.Errorf("stat export file: %w", err)
	}

	s.markCompleted(jobID, rowsExported, finalPath, info.Size())
	s.logger.Info("export job completed",
		zap.String("job_id", jobID.String()),
		zap.Int("rows", rowsExported),
		zap.String("path", finalPath),
	)
	return nil
}

func (s *Service) ensureExportDirectory() error {
	if strings.TrimSpace(s.exportDir) == "" {
		return errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return fmt.Errorf("ensure export directory: %w", err)
	}
	return nil
}

func workbookRow(change domain.ChangeEvent) []any {
	// Detail payloads are opaque JSON and pass through verbatim.
	details := ""
	if len(change.Details) > 0 {
		details = string(change.Details)
	}
	return []any{
		change.ID,
		change.CveID,
		change.EventName,
		change.CveChangeID,
		change.SourceIdentifier,
		change.Created.UTC().Format("2006-01-02 15:04:05"),
		details,
	}
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	const maxLen = 512
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}

type downloadSigner struct {
	secret []byte
	ttl    time.Duration
}

func newDownloadSigner(ttl time.Duration) *downloadSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &downloadSigner{secret: []byte(uuid.New().String()), ttl: ttl}
}

func (s *downloadSigner) Sign(jobID uuid.UUID, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s:%d", jobID.String(), expires)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	raw := fmt.Sprintf("%s:%s", payload, signature)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (s *downloadSigner) Verify(jobID uuid.UUID, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("missing download token")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return errors.New("invalid token format")
	}
	if parts[0] != jobID.String() {
		return errors.New("token does not match export job")
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token expiration: %w", err)
	}
	if now.Unix() > expires {
		return errors.New("download token expired")
	}
	payload := fmt.Sprintf("%s:%s", parts[0], parts[1])
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)
	provided, err := hex.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("invalid token signature: %w", err)
	}
	if !hmac.Equal(expected, provided) {
		return errors.New("invalid download token")
	}
	return nil
}
