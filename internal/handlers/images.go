package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"oftaclinic/api/internal/imaging"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
	"oftaclinic/api/internal/service"
)

type imageResponse struct {
	models.Image
	SizeFormatted string `json:"sizeFormatted"`
}

func newImageResponse(img models.Image) imageResponse {
	return imageResponse{Image: img, SizeFormatted: img.FormattedSize()}
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	user, _ := currentUser(c)

	img, err := h.imageService.Upload(c.Request.Context(), service.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
		UserID:      user.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedType),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrFileRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, newImageResponse(img))
}

func (h HandlerSet) GetAllImages(c *gin.Context) {
	images, err := h.imageService.GetAll(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}

	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, newImageResponse(img))
	}
	c.JSON(http.StatusOK, gin.H{"total": len(out), "images": out})
}

func (h HandlerSet) DeleteImage(c *gin.Context) {
	err := h.imageService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "image deleted"})
}

func (h HandlerSet) TransformImage(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, err := h.imageService.Transform(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		var invalidTransform *imaging.InvalidTransformationError
		var invalidParam *imaging.InvalidParameterError
		switch {
		case errors.As(err, &invalidTransform):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":                  invalidTransform.Error(),
				"invalidTransformations": invalidTransform.Keys,
			})
		case errors.As(err, &invalidParam):
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidParam.Error()})
		case errors.Is(err, repository.ErrImageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		default:
			h.serverError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// effectList accepts either a single effect name or an array of them.
type effectList []string

func (e *effectList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*e = effectList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("effects must be a string or an array of strings")
	}
	*e = effectList(many)
	return nil
}

func (h HandlerSet) ApplyImageEffects(c *gin.Context) {
	var body struct {
		Effects effectList `json:"effects"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Effects) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effects is required"})
		return
	}

	url := h.imageService.Effects(c.Param("id"), body.Effects)
	c.JSON(http.StatusOK, gin.H{"url": url, "effects": body.Effects})
}

func (h HandlerSet) CreateImageVariants(c *gin.Context) {
	var body struct {
		Variants []imaging.VariantSpec `json:"variants"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Variants) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variants is required"})
		return
	}

	urls := h.imageService.Variants(c.Param("id"), body.Variants)
	c.JSON(http.StatusOK, gin.H{"total": len(urls), "urls": urls})
}

func (h HandlerSet) AddWatermark(c *gin.Context) {
	var body struct {
		Text    string                   `json:"text"`
		Options imaging.WatermarkOptions `json:"options"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, err := h.imageService.Watermark(c.Param("id"), body.Text, body.Options)
	if err != nil {
		var invalidParam *imaging.InvalidParameterError
		if errors.As(err, &invalidParam) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidParam.Error()})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h HandlerSet) GetImageURLs(c *gin.Context) {
	urls, err := h.imageService.URLsByKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls})
}

func (h HandlerSet) GetTransformConfigs(c *gin.Context) {
	c.JSON(http.StatusOK, h.imageService.Configs())
}
