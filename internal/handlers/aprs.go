package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"apr-manager/internal/apr"
	"apr-manager/internal/database"
	"apr-manager/internal/middleware"
	"apr-manager/internal/models"
)

type AprHandler struct {
	svc *apr.Service
}

func NewAprHandler(svc *apr.Service) *AprHandler {
	return &AprHandler{svc: svc}
}

func actorFrom(c *gin.Context) apr.Actor {
	return apr.Actor{
		User:      middleware.CurrentUser(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func (h *AprHandler) Create(c *gin.Context) {
	var req apr.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	a, err := h.svc.Create(actorFrom(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"apr": a})
}

func (h *AprHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	detail, err := h.svc.Get(actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *AprHandler) List(c *gin.Context) {
	filter := database.AprFilter{
		Status: models.AprStatus(c.Query("status")),
	}
	// userId is the documented filter name; createdBy stays as an alias.
	byUser := c.Query("userId")
	if byUser == "" {
		byUser = c.Query("createdBy")
	}
	if byUser != "" {
		uid, err := strconv.ParseUint(byUser, 10, 32)
		if err != nil {
			badRequest(c, "invalid userId")
			return
		}
		filter.CreatedBy = uint(uid)
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(c, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	aprs, err := h.svc.List(actorFrom(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aprs": aprs})
}

func (h *AprHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	var req apr.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	a, err := h.svc.Update(actorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apr": a})
}

func (h *AprHandler) Submit(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	a, err := h.svc.SubmitForApproval(actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apr": a})
}

func (h *AprHandler) Review(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	var req apr.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	a, err := h.svc.Review(actorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apr": a})
}

func (h *AprHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	if err := h.svc.Delete(actorFrom(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type addImageRequest struct {
	ImageData string `json:"imageData" binding:"required"`
	Caption   string `json:"caption"`
	Order     int    `json:"order"`
}

// AddImage accepts a base64 payload, optionally as a data URL, and
// attaches it to the APR.
func (h *AprHandler) AddImage(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	var req addImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	raw := req.ImageData
	contentType := "image/jpeg"
	if strings.HasPrefix(raw, "data:") {
		header, rest, ok := strings.Cut(raw, ",")
		if !ok {
			badRequest(c, "malformed data URL")
			return
		}
		if strings.Contains(header, "image/png") {
			contentType = "image/png"
		}
		raw = rest
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		badRequest(c, "image data is not valid base64")
		return
	}

	img, err := h.svc.AddImage(c.Request.Context(), actorFrom(c), id, data, contentType, req.Caption, req.Order)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": img, "url": img.ImageURL})
}

type saveResponsesRequest struct {
	Responses []apr.ResponseInput `json:"responses" binding:"required"`
}

func (h *AprHandler) SaveResponses(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	var req saveResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	responses, err := h.svc.SaveResponses(actorFrom(c), id, req.Responses)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (h *AprHandler) AddSignature(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	var req apr.SignatureInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	sig, err := h.svc.AddSignature(actorFrom(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"signature": sig})
}

// Questions serves the static questionnaire catalog.
func (h *AprHandler) Questions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"questions":  apr.Questions,
		"categories": apr.Categories,
	})
}

func (h *AprHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(actorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AprHandler) Analyze(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	result, err := h.svc.Analyze(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": result})
}

func (h *AprHandler) DescribeImages(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	observations, err := h.svc.DescribeImages(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"observations": observations})
}

// Report renders the APR document and returns it base64-encoded, the
// same transport shape clients already use for image uploads.
func (h *AprHandler) Report(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		badRequest(c, "invalid APR id")
		return
	}
	out, err := h.svc.Report(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"contentType":  "text/html",
		"reportBase64": base64.StdEncoding.EncodeToString(out),
	})
}
