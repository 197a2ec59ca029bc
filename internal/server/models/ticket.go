package models

import "time"

const TicketStatusOpen = "open"

// Ticket is a support request submitted through /support/tickets. The
// validate tags cover the submitted form fields.
type Ticket struct {
	ID             string
	UserID         string
	Subject        string `form:"subject" validate:"required,max=120"`
	Message        string `form:"message" validate:"required,max=5000"`
	Email          string `form:"email" validate:"omitempty,email"`
	Category       string `form:"category" validate:"omitempty,oneof=general payment vehicle account"`
	VehicleID      string `form:"vehicleId" validate:"omitempty,max=64"`
	AttachmentURL  string
	AttachmentName string
	Status         string
	CreatedAt      time.Time
}
