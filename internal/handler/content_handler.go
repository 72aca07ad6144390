package handler

import (
	"net/http"
	"postcraft-go/internal/model"
	"postcraft-go/internal/service"
	"postcraft-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ContentHandler 负责内容生成、跨平台改写与历史查询。
type ContentHandler struct {
	generationService service.GenerationService
	adaptationService service.AdaptationService
	searchService     service.SearchService
}

// NewContentHandler 创建一个新的 ContentHandler。
func NewContentHandler(generationService service.GenerationService, adaptationService service.AdaptationService, searchService service.SearchService) *ContentHandler {
	return &ContentHandler{
		generationService: generationService,
		adaptationService: adaptationService,
		searchService:     searchService,
	}
}

// GenerateRequest 定义了生成接口的请求体结构。
type GenerateRequest struct {
	Prompt     string `json:"prompt" binding:"required"`
	Platform   string `json:"platform" binding:"required"`
	Tone       string `json:"tone"`
	VoiceStyle string `json:"voiceStyle"`
	Priority   bool   `json:"priority"`
}

// Generate 处理单平台内容生成请求。
func (h *ContentHandler) Generate(c *gin.Context) {
	userID, tier, found := identity(c)
	if !found {
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：prompt 和 platform 不能为空")
		return
	}
	platform, valid := platformParam(c, req.Platform)
	if !valid {
		return
	}

	res, err := h.generationService.Generate(c.Request.Context(), userID, tier, service.GenerateInput{
		Prompt:     req.Prompt,
		Platform:   platform,
		Tone:       req.Tone,
		VoiceStyle: req.VoiceStyle,
		Priority:   req.Priority,
	})
	if err != nil {
		respondError(c, "Generate", err)
		return
	}
	ok(c, res)
}

// AdaptRequest 定义了跨平台改写接口的请求体结构。
type AdaptRequest struct {
	Text  string `json:"text" binding:"required"`
	Style string `json:"style"`
}

// Adapt 把一段内容改写为三个平台的版本。
func (h *ContentHandler) Adapt(c *gin.Context) {
	userID, tier, found := identity(c)
	if !found {
		return
	}
	var req AdaptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：text 不能为空")
		return
	}
	res, err := h.adaptationService.AdaptAll(c.Request.Context(), userID, tier, req.Text, req.Style)
	if err != nil {
		respondError(c, "Adapt", err)
		return
	}
	ok(c, res)
}

// ValidateRequest 定义了校验接口的请求体结构。
type ValidateRequest struct {
	Platform string   `json:"platform" binding:"required"`
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags"`
}

// Validate 检查内容是否满足平台的长度与话题标签约束，不修改内容。
func (h *ContentHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "无效的请求负载：platform 不能为空")
		return
	}
	platform, valid := platformParam(c, req.Platform)
	if !valid {
		return
	}
	ok(c, h.adaptationService.Validate(platform, req.Text, req.Hashtags))
}

// Search 在用户的生成历史中全文检索。
func (h *ContentHandler) Search(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	query := c.Query("q")
	if query == "" {
		badRequest(c, "查询参数 q 不能为空")
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.searchService.SearchPosts(c.Request.Context(), userID, query, size)
	if err != nil {
		respondError(c, "Search", err)
		return
	}
	ok(c, hits)
}

// History 分页返回用户的生成历史。
func (h *ContentHandler) History(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	res, err := h.searchService.History(c.Request.Context(), userID, page, size)
	if err != nil {
		respondError(c, "History", err)
		return
	}
	ok(c, res)
}

// ExportAdaptation 返回改写归档的临时下载链接。
func (h *ContentHandler) ExportAdaptation(c *gin.Context) {
	userID, _, found := identity(c)
	if !found {
		return
	}
	id := c.Param("id")
	url, err := h.adaptationService.ExportURL(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "ExportAdaptation", err)
		return
	}
	log.Infof("ExportAdaptation: user=%d id=%s", userID, id)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"url": url}})
}

// platformValues 列出所有平台的约束，供前端展示。
func platformValues() []gin.H {
	out := make([]gin.H, 0, len(model.AllPlatforms))
	for _, p := range model.AllPlatforms {
		spec := model.SpecFor(p)
		out = append(out, gin.H{
			"platform":    p,
			"maxChars":    spec.MaxChars,
			"minHashtags": spec.MinHashtags,
			"maxHashtags": spec.MaxHashtags,
			"tone":        spec.Tone,
		})
	}
	return out
}

// Platforms 返回平台约束表。
func (h *ContentHandler) Platforms(c *gin.Context) {
	ok(c, platformValues())
}
