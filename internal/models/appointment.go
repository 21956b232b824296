package models

import "time"

type AppointmentType string

const (
	AppointmentConsulta AppointmentType = "consulta"
	AppointmentExamen   AppointmentType = "examen"
	AppointmentAjuste   AppointmentType = "ajuste"
	AppointmentOtro     AppointmentType = "otro"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Appointment struct {
	ID          string            `json:"id"`
	Patient     Patient           `json:"patient"`
	Date        time.Time         `json:"date"`
	Time        string            `json:"time"`
	Type        AppointmentType   `json:"type"`
	Status      AppointmentStatus `json:"status"`
	Notes       string            `json:"notes,omitempty"`
	Images      []string          `json:"images"`
	CreatedBy   *string           `json:"createdBy,omitempty"`
	CancelledAt *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
