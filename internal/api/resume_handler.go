package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/completion"
	"resumeBuilder/internal/listcache"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/store"
	"resumeBuilder/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 中导出任务用到的部分。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportStore 是 storage.Client 中管理导出文件用到的部分。
type ExportStore interface {
	ListObjects(ctx context.Context, prefix string, limit int) ([]storage.ObjectMeta, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

const (
	maxImportBytes = 1 << 20

	defaultExportListLimit = 20
	maxExportListLimit     = 100
)

// ResumeHandler 负责处理与已保存简历相关的 API 请求。
type ResumeHandler struct {
	registry *store.Registry
	enqueuer TaskEnqueuer
	exports  ExportStore
	now      func() time.Time
}

// NewResumeHandler 构造 ResumeHandler。enqueuer 与 exports 可以为 nil。
func NewResumeHandler(registry *store.Registry, enqueuer TaskEnqueuer, exports ExportStore) *ResumeHandler {
	return &ResumeHandler{
		registry: registry,
		enqueuer: enqueuer,
		exports:  exports,
		now:      time.Now,
	}
}

type createResumeRequest struct {
	Title      *string             `json:"title"`
	Personal   *resume.Personal    `json:"personal"`
	Summary    *string             `json:"summary"`
	Experience []resume.Experience `json:"experience"`
	Education  []resume.Education  `json:"education"`
	Skills     []resume.Skill      `json:"skills"`
	Projects   []resume.Project    `json:"projects"`
	ThemeColor *string             `json:"themeColor"`
}

func (r createResumeRequest) partial() resume.Partial {
	return resume.Partial{
		Title:      r.Title,
		Personal:   r.Personal,
		Summary:    r.Summary,
		Experience: r.Experience,
		Education:  r.Education,
		Skills:     r.Skills,
		Projects:   r.Projects,
		ThemeColor: r.ThemeColor,
	}
}

type duplicateRequest struct {
	Title string `json:"title"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

type listResponse struct {
	Items []resume.ListItem `json:"items"`
	Stale bool              `json:"stale,omitempty"`
}

// CreateResume 以默认值合并请求字段，设为当前草稿并创建远端文档。
// 未提供标题但填写了姓名时，根据姓名生成一个不重复的标题。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			BadRequest(c, err.Error())
			return
		}
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}

	if req.Title == nil && req.Personal != nil {
		h.ensureLoaded(c.Request.Context(), sess)
		title := resume.GenerateTitle(*req.Personal, sess.List.Titles())
		req.Title = &title
	}

	// 已持久化的草稿被新简历替换，进行中的创建则直接加入。
	if sess.Store.KnownRemoteID() != "" {
		sess.Store.NewDraft()
	}
	doc, err := sess.Store.CreateResume(c.Request.Context(), req.partial())
	if err != nil {
		middleware.LoggerFromContext(c).Warn("create resume failed", slog.Any("error", err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// ListResumes 返回仪表盘列表，支持 sort=date|name、filter=all|recent|favorites 与 q 搜索。
// 首次访问或 refresh=true 时从文档存储全量刷新。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	sortBy, err := listcache.ParseSort(c.Query("sort"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	filter, err := listcache.ParseFilter(c.Query("filter"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}

	var resp listResponse
	if !sess.List.Loaded() || c.Query("refresh") == "true" {
		err := sess.List.Load(c.Request.Context())
		metrics.ListLoaded(err)
		if err != nil {
			middleware.LoggerFromContext(c).Warn("load resume list failed", slog.Any("error", err))
			if !sess.List.Loaded() {
				respondError(c, err)
				return
			}
			resp.Stale = true
		}
	}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		resp.Items = sess.List.Search(q)
	} else {
		resp.Items = sess.List.View(sortBy, filter, h.now())
	}
	if resp.Items == nil {
		resp.Items = []resume.ListItem{}
	}
	c.JSON(http.StatusOK, resp)
}

// ListStats 返回仪表盘汇总。
func (h *ResumeHandler) ListStats(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	h.ensureLoaded(c.Request.Context(), sess)
	c.JSON(http.StatusOK, sess.List.Stats())
}

func (h *ResumeHandler) ensureLoaded(ctx context.Context, sess *store.Session) {
	if sess.List.Loaded() {
		return
	}
	metrics.ListLoaded(sess.List.Load(ctx))
}

// GetResume 读取指定简历，不改变当前草稿。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resume": doc, "completion": completion.Evaluate(doc)})
}

// OpenResume 读取指定简历并设为当前草稿。
func (h *ResumeHandler) OpenResume(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.LoadResume(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resume": doc, "completion": completion.Evaluate(doc)})
}

// UpdateResume 用请求体替换当前草稿内容并立即更新远端文档。
// 路径中的 ID 必须是当前草稿已知的远端 ID。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	if id := c.Param("id"); id != sess.Store.KnownRemoteID() {
		Conflict(c, fmt.Sprintf("resume %s is not the open draft", id))
		return
	}

	updated, err := sess.Store.UpdateResume(c.Request.Context(), doc)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("update resume failed", slog.Any("error", err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteResume 删除指定简历，必须携带 confirm=true。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	if c.Query("confirm") != "true" {
		BadRequest(c, "deletion must be confirmed with confirm=true")
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := sess.Store.DeleteResume(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	if h.exports != nil {
		if err := h.exports.DeletePrefix(c.Request.Context(), storage.ExportPrefix(sess.OwnerID, id)); err != nil {
			middleware.LoggerFromContext(c).Warn("delete resume exports failed", slog.String("resume_id", id), slog.Any("error", err))
		}
	}
	c.Status(http.StatusNoContent)
}

// DuplicateResume 复制指定简历为新文档。
func (h *ResumeHandler) DuplicateResume(c *gin.Context) {
	var req duplicateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			BadRequest(c, err.Error())
			return
		}
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.DuplicateResume(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Title))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// SetFavorite 修改收藏标记。
func (h *ResumeHandler) SetFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.SetFavorite(c.Request.Context(), c.Param("id"), *req.Favorite)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resume.ToListItem(doc))
}

// ImportResume 从导出的 JSON 创建新简历。
func (h *ResumeHandler) ImportResume(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return
	}
	if len(data) > maxImportBytes {
		Error(c, http.StatusRequestEntityTooLarge, "import is too large")
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.ImportResume(c.Request.Context(), data, c.Query("title"))
	if err != nil {
		var saveErr *store.SaveError
		if errors.As(err, &saveErr) {
			respondError(c, err)
			return
		}
		BadRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// ExportResume 同步导出简历为附件下载。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	format, err := resume.ParseFormat(c.DefaultQuery("format", string(resume.FormatJSON)))
	if err != nil {
		respondError(c, err)
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, err := sess.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := resume.Export(doc, format)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, doc.ID, format.Ext()))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// ListExports 列出指定简历已生成的导出文件。
func (h *ResumeHandler) ListExports(c *gin.Context) {
	if h.exports == nil {
		Error(c, http.StatusServiceUnavailable, "export storage is not configured")
		return
	}
	limit := defaultExportListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxExportListLimit {
			BadRequest(c, fmt.Sprintf("limit must be between 1 and %d", maxExportListLimit))
			return
		}
		limit = n
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := sess.Store.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	objects, err := h.exports.ListObjects(c.Request.Context(), storage.ExportPrefix(sess.OwnerID, id), limit)
	if err != nil {
		middleware.LoggerFromContext(c).Error("list resume exports failed", slog.String("resume_id", id), slog.Any("error", err))
		Internal(c, "failed to list exports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": objects})
}

// EnqueueExport 将导出任务入队并立即返回 202，结果通过 WebSocket 推送。
func (h *ResumeHandler) EnqueueExport(c *gin.Context) {
	if h.enqueuer == nil {
		Error(c, http.StatusServiceUnavailable, "background export is not configured")
		return
	}
	format, err := resume.ParseFormat(c.DefaultQuery("format", string(resume.FormatMarkdown)))
	if err != nil {
		respondError(c, err)
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := sess.Store.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	task, err := tasks.NewExportTask(tasks.ExportPayload{
		OwnerID:       sess.OwnerID,
		Collection:    h.registry.Collection(sess.OwnerID),
		ResumeID:      id,
		Format:        string(format),
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	info, err := h.enqueuer.EnqueueContext(c.Request.Context(), task, asynq.MaxRetry(5))
	if err != nil {
		middleware.LoggerFromContext(c).Error("enqueue export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"task_id": info.ID,
	})
}
