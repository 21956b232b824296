package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oftaclinic/api/internal/ids"
	"oftaclinic/api/internal/models"
	"oftaclinic/api/internal/repository"
)

type appointmentRequest struct {
	Patient struct {
		Name  string `json:"name" binding:"required,min=2,max=100"`
		Email string `json:"email" binding:"required,email"`
		Phone string `json:"phone" binding:"required,min=6,max=20"`
	} `json:"patient" binding:"required"`
	Date   string   `json:"date" binding:"required"`
	Time   string   `json:"time" binding:"required,timehhmm"`
	Type   string   `json:"type" binding:"required,oneof=consulta examen ajuste otro"`
	Notes  string   `json:"notes" binding:"max=1000"`
	Images []string `json:"images"`
}

func (h HandlerSet) CreateAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	now := time.Now().UTC()
	appt := models.Appointment{
		ID: ids.New(),
		Patient: models.Patient{
			Name:  req.Patient.Name,
			Email: req.Patient.Email,
			Phone: req.Patient.Phone,
		},
		Date:      date,
		Time:      req.Time,
		Type:      models.AppointmentType(req.Type),
		Status:    models.AppointmentPending,
		Notes:     req.Notes,
		Images:    req.Images,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user, ok := currentUser(c); ok {
		appt.CreatedBy = &user.ID
	}

	if err := h.appointments.Create(c.Request.Context(), appt); err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

func (h HandlerSet) GetAppointments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	filter := repository.AppointmentFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		filter.Date = &date
	}

	appts, err := h.appointments.List(c.Request.Context(), filter)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": len(appts), "appointments": appts})
}

func (h HandlerSet) GetAppointmentByID(c *gin.Context) {
	appt, err := h.appointments.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h HandlerSet) UpdateAppointmentStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.appointments.UpdateStatus(c.Request.Context(), c.Param("id"), models.AppointmentStatus(body.Status))
	if err != nil {
		if errors.Is(err, repository.ErrAppointmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		h.serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "appointment status updated", "status": body.Status})
}
