package api

import "github.com/enervolt/enervolt-backend/internal/db"

// SiteContentDTO is the cached landing-page aggregate.
type SiteContentDTO struct {
	Services     []db.Row `json:"services"`
	Products     []db.Row `json:"products"`
	Testimonials []db.Row `json:"testimonials"`
	AsOf         int64    `json:"asOf"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

type QuoteItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type QuoteRequest struct {
	Name    string             `json:"name"`
	Email   string             `json:"email"`
	Phone   string             `json:"phone,omitempty"`
	Company string             `json:"company,omitempty"`
	Message string             `json:"message,omitempty"`
	Items   []QuoteItemRequest `json:"items,omitempty"`
}

type QuoteLineDTO struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"lineTotal"`
}

type QuoteDTO struct {
	ID        int64          `json:"id"`
	Reference string         `json:"reference"`
	Items     []QuoteLineDTO `json:"items,omitempty"`
	Total     string         `json:"total"`
	Status    string         `json:"status"`
}

type SearchResultsDTO struct {
	Query    string   `json:"query"`
	Services []db.Row `json:"services"`
	Products []db.Row `json:"products"`
	Posts    []db.Row `json:"posts"`
}
