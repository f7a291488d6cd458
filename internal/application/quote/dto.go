package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/quote"
)

// Requester identifies who is calling. A zero value is an anonymous visitor.
type Requester struct {
	UserID *uuid.UUID
	Email  string
	Admin  bool
}

// CreateQuoteRequest is the public quote request form
type CreateQuoteRequest struct {
	CustomerName   string                `json:"customer_name" binding:"required,min=2,max=200"`
	Email          string                `json:"email" binding:"required,email,max=200"`
	Phone          string                `json:"phone" binding:"max=30"`
	Company        string                `json:"company" binding:"max=200"`
	DocumentType   identity.DocumentType `json:"document_type" binding:"omitempty,oneof=DNI RUC CE"`
	DocumentNumber string                `json:"document_number" binding:"max=20"`
	ServiceType    string                `json:"service_type" binding:"required,max=100"`
	ProductID      *uuid.UUID            `json:"product_id"`
	Quantity       int                   `json:"quantity" binding:"min=0,max=100000"`
	Description    string                `json:"description" binding:"required,min=10,max=5000"`
	Address        string                `json:"address" binding:"max=300"`
}

// UpdateQuoteRequest holds the admin editable details
type UpdateQuoteRequest struct {
	EstimatedAmount   *decimal.Decimal `json:"estimated_amount"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery"`
	AdminNotes        string           `json:"admin_notes" binding:"max=5000"`
	Address           string           `json:"address" binding:"max=300"`
}

// ChangeStatusRequest moves a quote along its lifecycle
type ChangeStatusRequest struct {
	Status  quote.Status `json:"status" binding:"required"`
	Comment string       `json:"comment" binding:"max=2000"`
}

// AddCommentRequest appends a note to the progress log
type AddCommentRequest struct {
	Comment string `json:"comment" binding:"required,max=2000"`
	// Notify sends the comment to the customer
	Notify bool `json:"notify"`
}

// CancelRequest cancels a quote
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID                uuid.UUID             `json:"id"`
	Code              string                `json:"code"`
	UserID            *uuid.UUID            `json:"user_id,omitempty"`
	CustomerName      string                `json:"customer_name"`
	Email             string                `json:"email"`
	Phone             string                `json:"phone"`
	Company           string                `json:"company,omitempty"`
	DocumentType      identity.DocumentType `json:"document_type,omitempty"`
	DocumentNumber    string                `json:"document_number,omitempty"`
	ServiceType       string                `json:"service_type"`
	ProductID         *uuid.UUID            `json:"product_id,omitempty"`
	Quantity          int                   `json:"quantity"`
	Description       string                `json:"description"`
	Address           string                `json:"address,omitempty"`
	Status            quote.Status          `json:"status"`
	StatusLabel       string                `json:"status_label"`
	Progress          int                   `json:"progress"`
	EstimatedAmount   *decimal.Decimal      `json:"estimated_amount,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
	AdminNotes        string                `json:"admin_notes,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// ProgressResponse is one entry of the progress log
type ProgressResponse struct {
	ID               uuid.UUID    `json:"id"`
	Status           quote.Status `json:"status"`
	StatusLabel      string       `json:"status_label"`
	Progress         int          `json:"progress"`
	Comment          string       `json:"comment"`
	NotifiedEmail    bool         `json:"notified_email"`
	NotifiedWhatsApp bool         `json:"notified_whatsapp"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ProgressResult is returned by operations that append to the log
type ProgressResult struct {
	Quote        QuoteResponse    `json:"quote"`
	Update       ProgressResponse `json:"update"`
	WhatsAppLink string           `json:"whatsapp_link,omitempty"`
}

func toQuoteResponse(q *quote.Quote, admin bool) QuoteResponse {
	resp := QuoteResponse{
		ID:                q.ID,
		Code:              q.Code,
		UserID:            q.UserID,
		CustomerName:      q.CustomerName,
		Email:             q.Email,
		Phone:             q.Phone,
		Company:           q.Company,
		DocumentType:      q.DocumentType,
		DocumentNumber:    q.DocumentNumber,
		ServiceType:       q.ServiceType,
		ProductID:         q.ProductID,
		Quantity:          q.Quantity,
		Description:       q.Description,
		Address:           q.Address,
		Status:            q.Status,
		StatusLabel:       q.Status.Label(),
		Progress:          q.Progress,
		EstimatedAmount:   q.EstimatedAmount,
		EstimatedDelivery: q.EstimatedDelivery,
		CreatedAt:         q.CreatedAt,
		UpdatedAt:         q.UpdatedAt,
	}
	if admin {
		resp.AdminNotes = q.AdminNotes
	}
	return resp
}

func toProgressResponse(u *quote.ProgressUpdate) ProgressResponse {
	return ProgressResponse{
		ID:               u.ID,
		Status:           u.Status,
		StatusLabel:      u.Status.Label(),
		Progress:         u.Progress,
		Comment:          u.Comment,
		NotifiedEmail:    u.NotifiedEmail,
		NotifiedWhatsApp: u.NotifiedWhatsApp,
		CreatedAt:        u.CreatedAt,
	}
}
