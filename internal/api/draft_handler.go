package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/assist"
	"resumeBuilder/internal/completion"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/store"
)

// DraftHandler 负责编辑器中当前草稿的本地编辑与保存。
type DraftHandler struct {
	registry  *store.Registry
	generator assist.Generator
	now       func() time.Time
}

// NewDraftHandler 构造 DraftHandler，generator 为 nil 时禁用智能建议。
func NewDraftHandler(registry *store.Registry, generator assist.Generator) *DraftHandler {
	return &DraftHandler{registry: registry, generator: generator, now: time.Now}
}

type draftResponse struct {
	Draft      resume.Document         `json:"draft"`
	RemoteID   string                  `json:"remoteId,omitempty"`
	Dirty      bool                    `json:"dirty"`
	Completion completion.Result       `json:"completion"`
	Errors     resume.ValidationErrors `json:"errors"`
}

type saveResponse struct {
	draftResponse
	Outcome    store.Outcome `json:"outcome"`
	PreviousID string        `json:"previousId,omitempty"`
	Code       int           `json:"code"`
}

type skillRequest struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Rating            int    `json:"rating"`
	YearsOfExperience int    `json:"yearsOfExperience"`
}

type suggestionRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Index int    `json:"index"`
}

type applySkillsRequest struct {
	Names []string `json:"names" binding:"required"`
}

func sessionFor(c *gin.Context, registry *store.Registry) (*store.Session, bool) {
	owner, ok := middleware.GetOwnerID(c)
	if !ok {
		ErrorCode(c, http.StatusUnauthorized, errcode.FieldValidation, "owner required")
		return nil, false
	}
	return registry.For(owner), true
}

func (h *DraftHandler) snapshot(s *store.Store) (draftResponse, bool) {
	doc, ok := s.Current()
	if !ok {
		return draftResponse{}, false
	}
	errs := resume.Validate(doc)
	if errs == nil {
		errs = resume.ValidationErrors{}
	}
	return draftResponse{
		Draft:      doc,
		RemoteID:   s.KnownRemoteID(),
		Dirty:      s.IsDirty(),
		Completion: completion.Evaluate(doc),
		Errors:     errs,
	}, true
}

func (h *DraftHandler) respondDraft(c *gin.Context, s *store.Store, status int) {
	resp, ok := h.snapshot(s)
	if !ok {
		respondError(c, store.ErrNoDraft)
		return
	}
	c.JSON(status, resp)
}

// NewDraft 打开一份空白草稿，不产生任何远端写入。
func (h *DraftHandler) NewDraft(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	sess.Store.NewDraft()
	h.respondDraft(c, sess.Store, http.StatusCreated)
}

// GetDraft 返回当前草稿及其完成度与校验结果。
func (h *DraftHandler) GetDraft(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	h.respondDraft(c, sess.Store, http.StatusOK)
}

// UpdateDraft 在本地替换草稿内容，不做远端写入也不校验日期。
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	sess.Store.UpdateResumeLocal(doc)
	h.respondDraft(c, sess.Store, http.StatusOK)
}

// DiscardDraft 丢弃当前草稿。
func (h *DraftHandler) DiscardDraft(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	sess.Store.Discard()
	c.Status(http.StatusNoContent)
}

// SaveDraft 保存当前草稿：未持久化时创建，否则更新并在必要时回退为创建。
// ?validate=true 时存在阻断性字段错误则拒绝保存。
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}

	save := sess.Store.Save
	if c.Query("validate") == "true" {
		save = sess.Store.SaveValidated
	}
	res, err := save(c.Request.Context())
	if err != nil {
		middleware.LoggerFromContext(c).Warn("save draft failed", slog.Any("error", err))
		respondError(c, err)
		return
	}

	resp := saveResponse{Outcome: res.Outcome, PreviousID: res.PreviousID, Code: errcode.OK}
	if res.Outcome == store.OutcomeRecreated {
		resp.Code = errcode.ConflictRecovered
	}
	if snap, ok := h.snapshot(sess.Store); ok {
		resp.draftResponse = snap
	} else {
		resp.Draft = res.Document
	}
	status := http.StatusOK
	if res.Outcome != store.OutcomeUpdated {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// Validate 返回当前草稿的字段错误。
func (h *DraftHandler) Validate(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	resp, ok := h.snapshot(sess.Store)
	if !ok {
		respondError(c, store.ErrNoDraft)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"errors":   resp.Errors,
		"blocking": len(resp.Errors.Blocking()) > 0,
	})
}

// Stats 返回字数、字符数与工作年限等统计。
func (h *DraftHandler) Stats(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, ok := sess.Store.Current()
	if !ok {
		respondError(c, store.ErrNoDraft)
		return
	}
	c.JSON(http.StatusOK, resume.ComputeStats(doc, h.now()))
}

// AddSkill 添加技能，重复或非法的技能被拒绝且草稿不变。
func (h *DraftHandler) AddSkill(c *gin.Context) {
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	err := sess.Store.AddSkill(resume.Skill{
		Name:              req.Name,
		Category:          req.Category,
		Rating:            req.Rating,
		YearsOfExperience: req.YearsOfExperience,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondDraft(c, sess.Store, http.StatusCreated)
}

// RemoveSkill 按名称删除技能。
func (h *DraftHandler) RemoveSkill(c *gin.Context) {
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	if !sess.Store.RemoveSkill(c.Param("name")) {
		NotFound(c, "skill not found")
		return
	}
	h.respondDraft(c, sess.Store, http.StatusOK)
}

// Suggest 请求文本生成服务给出当前草稿的建议。
func (h *DraftHandler) Suggest(c *gin.Context) {
	if h.generator == nil {
		ErrorCode(c, http.StatusServiceUnavailable, errcode.SystemError, "suggestions are not configured")
		return
	}
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	kind, err := assist.ParseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	doc, ok := sess.Store.Current()
	if !ok {
		respondError(c, store.ErrNoDraft)
		return
	}

	prompt, err := assist.ContextFor(doc, kind, req.Index)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	suggestions, err := assist.Suggest(c.Request.Context(), h.generator, kind, prompt)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("generate suggestions failed", slog.String("kind", string(kind)), slog.Any("error", err))
		respondError(c, err)
		return
	}
	if kind == assist.KindSkills {
		suggestions = assist.NewSkills(doc, suggestions)
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "suggestions": suggestions})
}

// ApplySkills 将建议的技能批量加入草稿，已存在的跳过。
func (h *DraftHandler) ApplySkills(c *gin.Context) {
	var req applySkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	sess, ok := sessionFor(c, h.registry)
	if !ok {
		return
	}
	added, err := sess.Store.ApplySkillSuggestions(req.Names)
	if err != nil {
		respondError(c, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	resp, _ := h.snapshot(sess.Store)
	c.JSON(http.StatusOK, gin.H{"added": added, "draft": resp.Draft, "completion": resp.Completion})
}
