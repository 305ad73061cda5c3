package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/enervolt/enervolt-backend/internal/config"
	"github.com/enervolt/enervolt-backend/internal/crud"
	"github.com/enervolt/enervolt-backend/internal/db"
	"github.com/enervolt/enervolt-backend/internal/store"
	"github.com/enervolt/enervolt-backend/internal/ws"
)

type Handler struct {
	client *db.Client
	cache  *store.Cache
	hub    *ws.Hub
	config *config.Config
	logger *zap.SugaredLogger
}

func NewHandler(
	client *db.Client,
	cache *store.Cache,
	hub *ws.Hub,
	cfg *config.Config,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		client: client,
		cache:  cache,
		hub:    hub,
		config: cfg,
		logger: logger,
	}
}

// notifier bridges CRUD mutations into the live-update channel.
func (h *Handler) notifier() crud.Notifier {
	return ws.NewNotifier(h.cache, h.logger)
}

// Health endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": "database"})
		return
	}
	if err := h.cache.Ping(r.Context()); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "reason": "cache"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetSiteContent returns the landing-page aggregate: published services,
// products, and testimonials in one response, cached for a short TTL.
func (h *Handler) GetSiteContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached SiteContentDTO
	if err := h.cache.Get(ctx, store.KeySiteContent, &cached); err == nil {
		h.writeJSON(w, http.StatusOK, crud.Response{Success: true, Data: cached})
		return
	}

	dto := SiteContentDTO{AsOf: time.Now().Unix()}
	for _, part := range []struct {
		table string
		dest  *[]db.Row
	}{
		{"services", &dto.Services},
		{"products", &dto.Products},
		{"testimonials", &dto.Testimonials},
	} {
		res := h.client.From(part.table).
			Select("*").
			Eq("published", true).
			Order("created_at", false).
			Execute(ctx)
		if res.Err != nil {
			h.fail(w, r, http.StatusInternalServerError, "Failed to fetch "+part.table, res.Err)
			return
		}
		*part.dest = res.Data
	}

	if err := h.cache.Set(ctx, store.KeySiteContent, dto, h.config.Cache.ContentTTL); err != nil {
		h.logger.Warnw("Failed to cache site content", "error", err)
	}

	h.writeJSON(w, http.StatusOK, crud.Response{Success: true, Data: dto})
}

// SubmitContact stores a contact-form message.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		h.writeJSON(w, http.StatusBadRequest, crud.Response{Success: false, Error: "name, email and message are required"})
		return
	}
	if !strings.Contains(req.Email, "@") {
		h.writeJSON(w, http.StatusBadRequest, crud.Response{Success: false, Error: "email is invalid"})
		return
	}

	res := h.client.From("contacts").Insert(db.Row{
		"name":    req.Name,
		"email":   req.Email,
		"phone":   req.Phone,
		"subject": req.Subject,
		"message": req.Message,
		"handled": false,
	}).Execute(r.Context())
	if res.Err != nil {
		h.fail(w, r, http.StatusBadRequest, "Failed to submit contact message", res.Err)
		return
	}

	h.writeJSON(w, http.StatusCreated, crud.Response{Success: true, Data: res.First()})
}

// RequestQuote stores a quote request. When product line items are
// given, unit prices are looked up and the total is computed with exact
// decimal arithmetic; the caller gets back a public reference code.
func (h *Handler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Email == "" {
		h.writeJSON(w, http.StatusBadRequest, crud.Response{Success: false, Error: "name and email are required"})
		return
	}

	total := decimal.Zero
	lines := make([]QuoteLineDTO, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			h.writeJSON(w, http.StatusBadRequest, crud.Response{Success: false, Error: "item quantity must be positive"})
			return
		}
		res := h.client.From("products").
			Select("*").
			Eq("id", item.ProductID).
			Single().
			Execute(ctx)
		if errors.Is(res.Err, db.ErrNotFound) {
			h.writeJSON(w, http.StatusBadRequest, crud.Response{
				Success: false,
				Error:   fmt.Sprintf("unknown product id %d", item.ProductID),
			})
			return
		}
		if res.Err != nil {
			h.fail(w, r, http.StatusInternalServerError, "Failed to fetch products", res.Err)
			return
		}

		product := res.First()
		price, err := toDecimal(product["price"])
		if err != nil {
			h.fail(w, r, http.StatusInternalServerError, "Failed to read product price", err)
			return
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)

		name, _ := product["name"].(string)
		lines = append(lines, QuoteLineDTO{
			ProductID: item.ProductID,
			Name:      name,
			UnitPrice: price.StringFixed(2),
			Quantity:  item.Quantity,
			LineTotal: lineTotal.StringFixed(2),
		})
	}

	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, "Failed to encode quote items", err)
		return
	}

	reference := "Q-" + strings.ToUpper(uuid.New().String()[:8])
	res := h.client.From("quotes").Insert(db.Row{
		"reference": reference,
		"name":      req.Name,
		"email":     req.Email,
		"phone":     req.Phone,
		"company":   req.Company,
		"message":   req.Message,
		"items":     string(itemsJSON),
		"total":     total.StringFixed(2),
		"status":    "new",
	}).Execute(ctx)
	if res.Err != nil {
		h.fail(w, r, http.StatusBadRequest, "Failed to create quotes", res.Err)
		return
	}

	row := res.First()
	id, _ := row["id"].(int64)
	h.writeJSON(w, http.StatusCreated, crud.Response{Success: true, Data: QuoteDTO{
		ID:        id,
		Reference: reference,
		Items:     lines,
		Total:     total.StringFixed(2),
		Status:    "new",
	}})
}

// Search runs the ad hoc free-text search across published content.
// This lives outside the generic CRUD factory on purpose: the factory
// treats "search" as a reserved, unapplied parameter.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeJSON(w, http.StatusBadRequest, crud.Response{Success: false, Error: "q is required"})
		return
	}
	pattern := "%" + q + "%"

	dto := SearchResultsDTO{Query: q}
	for _, part := range []struct {
		table string
		field string
		dest  *[]db.Row
	}{
		{"services", "name", &dto.Services},
		{"products", "name", &dto.Products},
		{"posts", "title", &dto.Posts},
	} {
		res := h.client.From(part.table).
			Select("*").
			Eq("published", true).
			Like(part.field, pattern).
			Order("created_at", false).
			Range(0, 19).
			Execute(ctx)
		if res.Err != nil {
			h.fail(w, r, http.StatusInternalServerError, "Failed to search "+part.table, res.Err)
			return
		}
		*part.dest = res.Data
	}

	h.writeJSON(w, http.StatusOK, crud.Response{Success: true, Data: dto})
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case string:
		return decimal.NewFromString(t)
	case decimal.Decimal:
		return t, nil
	default:
		return decimal.NewFromString(fmt.Sprintf("%v", t))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	h.logger.Errorw(msg,
		"request_id", middleware.GetReqID(r.Context()),
		"status", status,
		"error", err,
	)

	resp := crud.Response{Success: false, Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	h.writeJSON(w, status, resp)
}
