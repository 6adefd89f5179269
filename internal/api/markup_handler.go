package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/markup"
)

const maxMarkupBytes = 64 << 10

// MarkupHandler 提供编辑器使用的标记语言预览与格式化接口。
type MarkupHandler struct {
	engine markup.Engine
}

// NewMarkupHandler 构造 MarkupHandler，engine 为 nil 时使用 markup.Default。
func NewMarkupHandler(engine markup.Engine) *MarkupHandler {
	if engine == nil {
		engine = markup.Default
	}
	return &MarkupHandler{engine: engine}
}

type markupRequest struct {
	Markup string `json:"markup"`
}

type toggleRequest struct {
	Markup string `json:"markup"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Tag    string `json:"tag" binding:"required"`
}

type escapeRequest struct {
	Text string `json:"text"`
}

func bindMarkup(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		BadRequest(c, err.Error())
		return false
	}
	return true
}

func markupTooLarge(c *gin.Context, s string) bool {
	if len(s) > maxMarkupBytes {
		Error(c, http.StatusRequestEntityTooLarge, "markup is too large")
		return true
	}
	return false
}

// Render 解析标记文本，返回样式片段、纯展示文本与标签问题。
func (h *MarkupHandler) Render(c *gin.Context) {
	var req markupRequest
	if !bindMarkup(c, &req) {
		return
	}
	if markupTooLarge(c, req.Markup) {
		return
	}

	tokens := h.engine.Parse(req.Markup)
	issues := markup.Validate(req.Markup)
	if issues == nil {
		issues = []markup.Issue{}
	}
	c.JSON(http.StatusOK, gin.H{
		"tokens": tokens,
		"spans":  markup.Render(tokens),
		"text":   markup.RenderText(req.Markup),
		"issues": issues,
	})
}

// Strip 返回去除标签后的纯文本及字数统计。
func (h *MarkupHandler) Strip(c *gin.Context) {
	var req markupRequest
	if !bindMarkup(c, &req) {
		return
	}
	if markupTooLarge(c, req.Markup) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text":       h.engine.StripToPlainText(req.Markup),
		"words":      h.engine.WordCount(req.Markup),
		"characters": h.engine.CharacterCount(req.Markup),
	})
}

// Toggle 对选区应用加粗、斜体或下划线切换。
// 选区为空时同时返回插入标签对之后的光标位置。
func (h *MarkupHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if !bindMarkup(c, &req) {
		return
	}
	if markupTooLarge(c, req.Markup) {
		return
	}

	out := h.engine.ApplyInlineToggle(req.Markup, req.Start, req.End, req.Tag)
	resp := gin.H{"markup": out, "changed": out != req.Markup}
	if req.Start == req.End && out != req.Markup {
		pos := min(max(req.Start, 0), len([]rune(req.Markup)))
		resp["cursor"] = markup.InsertionCursor(pos, req.Tag)
	}
	c.JSON(http.StatusOK, resp)
}

// Escape 将纯文本转义为标记文本，换行变为 <br>。
func (h *MarkupHandler) Escape(c *gin.Context) {
	var req escapeRequest
	if !bindMarkup(c, &req) || markupTooLarge(c, req.Text) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"markup": h.engine.EscapeToMarkup(req.Text)})
}
