package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

// ObjectStore is the part of the storage client the export handler uses.
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// ExportTaskHandler 负责消费简历导出任务。
type ExportTaskHandler struct {
	gw          gateway.Gateway
	storage     ObjectStore
	redisClient redisPublisher
	logger      *slog.Logger
	urlTTL      time.Duration
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(gw gateway.Gateway, objects ObjectStore, redisClient redisPublisher, logger *slog.Logger, urlTTL time.Duration) *ExportTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &ExportTaskHandler{
		gw:          gw,
		storage:     objects,
		redisClient: redisClient,
		logger:      logger,
		urlTTL:      urlTTL,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("owner_id", payload.OwnerID),
		slog.String("resume_id", payload.ResumeID),
		slog.String("format", payload.Format),
	)
	log.Info("starting resume export task")

	notify := ExportNotifyMessage{
		Type:          "export",
		ResumeID:      payload.ResumeID,
		Format:        payload.Format,
		CorrelationID: payload.CorrelationID,
	}

	format, err := resume.ParseFormat(payload.Format)
	if err != nil {
		h.fail(ctx, log, payload.OwnerID, notify, errcode.FieldValidation, err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	defer func() {
		if retErr == nil || errors.Is(retErr, asynq.SkipRetry) {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.fail(ctx, log, payload.OwnerID, notify, errcode.SystemError, retErr)
	}()

	rec, err := h.gw.Get(ctx, payload.Collection, payload.ResumeID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			h.fail(ctx, log, payload.OwnerID, notify, errcode.ResourceMissing, err)
			return nil
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}
	if rec.OwnerID != payload.OwnerID {
		log.Warn("resume belongs to another owner, skipping task")
		h.fail(ctx, log, payload.OwnerID, notify, errcode.ResourceMissing, gateway.ErrNotFound)
		return nil
	}

	doc, err := resume.DecodeBody(rec.Body, rec.ID, rec.CreatedAt, rec.LastUpdated)
	if err != nil {
		log.Error("decode resume failed", slog.Any("error", err))
		h.fail(ctx, log, payload.OwnerID, notify, errcode.SystemError, err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	data, err := resume.Export(doc, format)
	if err != nil {
		log.Error("render export failed", slog.Any("error", err))
		return err
	}

	objectName := storage.ExportKey(payload.OwnerID, rec.ID, exportFileName(doc.Title, format))
	if err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), format.ContentType()); err != nil {
		log.Error("upload export to minio failed", slog.Any("error", err))
		return err
	}

	url, err := h.storage.GeneratePresignedURL(ctx, objectName, h.urlTTL)
	if err != nil {
		log.Error("generate export link failed", slog.Any("error", err))
		return err
	}

	notify.Status = "completed"
	notify.URL = url
	notify.ErrorCode = errcode.OK
	if err := h.publish(ctx, payload.OwnerID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("resume export task completed", slog.String("object", objectName), slog.Int("bytes", len(data)))
	return nil
}

func (h *ExportTaskHandler) fail(ctx context.Context, log *slog.Logger, ownerID string, notify ExportNotifyMessage, code int, cause error) {
	notify.Status = "error"
	notify.ErrorCode = code
	notify.ErrorMessage = strings.TrimSpace(cause.Error())
	if err := h.publish(ctx, ownerID, notify); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

func (h *ExportTaskHandler) publish(ctx context.Context, ownerID string, notify ExportNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(ownerID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// exportFileName 生成 "<title-slug>-<random><ext>"。
func exportFileName(title string, f resume.Format) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(title))
	slug = strings.Trim(collapseDashes(slug), "-")
	if slug == "" {
		slug = "resume"
	}
	return fmt.Sprintf("%s-%s%s", slug, uuid.NewString()[:8], f.Ext())
}

func collapseDashes(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
