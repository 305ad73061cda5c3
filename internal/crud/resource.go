// Package crud builds the REST resources of the admin back-office. Given
// a table name and a data client it produces the five standard handlers
// (list, get, create, update, delete) with pagination, equality
// filtering, and the uniform response envelope, so every content table
// gets the same wire contract from one factory.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/enervolt/enervolt-backend/internal/db"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	msgInvalidID = "ID must be a valid number"
	msgNotFound  = "Not found"
)

// Reserved query parameters never become equality filters. "search" is
// accepted and forwarded but deliberately unused here: free-text search
// lives in dedicated route handlers, not in the generic factory.
var reservedParams = map[string]bool{
	"page":   true,
	"limit":  true,
	"search": true,
}

// Notifier receives a change event after every successful mutation.
type Notifier interface {
	NotifyChange(ctx context.Context, table, action string, id int64)
}

// Resource is a set of CRUD handlers bound to one table. Handlers are
// stateless; the data store owns all row state.
type Resource struct {
	table    string
	client   *db.Client
	logger   *zap.SugaredLogger
	notifier Notifier
}

type Option func(*Resource)

// WithNotifier wires live-update notifications for mutations.
func WithNotifier(n Notifier) Option {
	return func(rs *Resource) { rs.notifier = n }
}

func NewResource(table string, client *db.Client, logger *zap.SugaredLogger, opts ...Option) *Resource {
	rs := &Resource{table: table, client: client, logger: logger}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Routes mounts the full contract:
//
//	GET    /      list with pagination and filters
//	GET    /{id}  fetch one
//	POST   /      create
//	PUT    /{id}  update (PATCH accepted as an alias)
//	DELETE /{id}  delete
func (rs *Resource) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", rs.List)
	r.Get("/{id}", rs.Get)
	r.Post("/", rs.Create)
	r.Put("/{id}", rs.Update)
	r.Patch("/{id}", rs.Update)
	r.Delete("/{id}", rs.Delete)
	return r
}

// ReadOnlyRoutes mounts just the read half, for the public API.
func (rs *Resource) ReadOnlyRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", rs.List)
	r.Get("/{id}", rs.Get)
	return r
}

// List returns one page of rows, newest first.
//
// Note on total: the count is taken over the whole table before filters
// are applied, so pagination.total can exceed the filtered row count.
// Kept for wire compatibility with the previous backend; see DESIGN.md.
func (rs *Resource) List(w http.ResponseWriter, r *http.Request) {
	defer rs.recoverPanic(w, r)
	ctx := r.Context()

	params := r.URL.Query()
	page := parseBounded(params.Get("page"), defaultPage, 1, 0)
	limit := parseBounded(params.Get("limit"), defaultLimit, 1, maxLimit)

	countRes := rs.client.From(rs.table).
		Select("*", db.WithCount(), db.HeadOnly()).
		Execute(ctx)
	if countRes.Err != nil {
		rs.fail(w, r, http.StatusInternalServerError, "Failed to count "+rs.table, countRes.Err)
		return
	}
	total := countRes.Count

	sel := rs.client.From(rs.table).Select("*")
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if reservedParams[key] {
			continue
		}
		if v := params.Get(key); v != "" {
			sel = sel.Eq(key, v)
		}
	}

	from := (page - 1) * limit
	res := sel.Range(from, from+limit-1).
		Order("created_at", false).
		Execute(ctx)
	if res.Err != nil {
		rs.fail(w, r, http.StatusInternalServerError, "Failed to fetch "+rs.table, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    res.Data,
		Pagination: &Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int((total + int64(limit) - 1) / int64(limit)),
		},
	})
}

// Get fetches a single row by id.
func (rs *Resource) Get(w http.ResponseWriter, r *http.Request) {
	defer rs.recoverPanic(w, r)

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		reject(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	res := rs.client.From(rs.table).
		Select("*").
		Eq("id", id).
		Single().
		Execute(r.Context())
	if errors.Is(res.Err, db.ErrNotFound) {
		reject(w, http.StatusNotFound, msgNotFound)
		return
	}
	if res.Err != nil {
		rs.fail(w, r, http.StatusInternalServerError, "Failed to fetch "+rs.table, res.Err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: res.First()})
}

// Create inserts the request body as a new row. Store rejections
// (constraint violations, unknown columns) are client errors, not
// server faults.
func (rs *Resource) Create(w http.ResponseWriter, r *http.Request) {
	defer rs.recoverPanic(w, r)

	body, err := decodeBody(r)
	if err != nil {
		rs.fail(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	delete(body, "id") // the store assigns ids

	res := rs.client.From(rs.table).Insert(body).Execute(r.Context())
	if res.Err != nil {
		rs.fail(w, r, http.StatusBadRequest, "Failed to create "+rs.table, res.Err)
		return
	}

	row := res.First()
	rs.notify(r.Context(), "created", row)
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: row})
}

// Update applies a partial row to the record with the given id. The
// mutation is conditioned on the id in a single statement, so a missing
// row surfaces as zero affected rows rather than a separate existence
// check racing the write.
func (rs *Resource) Update(w http.ResponseWriter, r *http.Request) {
	defer rs.recoverPanic(w, r)

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		reject(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		rs.fail(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res := rs.client.From(rs.table).
		Update(body).
		Eq("id", id).
		Execute(r.Context())
	if res.Err != nil {
		rs.fail(w, r, http.StatusBadRequest, "Failed to update "+rs.table, res.Err)
		return
	}
	if len(res.Data) == 0 {
		reject(w, http.StatusNotFound, msgNotFound)
		return
	}

	rs.notify(r.Context(), "updated", res.First())
	writeJSON(w, http.StatusOK, Response{Success: true, Data: res.First()})
}

// Delete removes the row with the given id.
func (rs *Resource) Delete(w http.ResponseWriter, r *http.Request) {
	defer rs.recoverPanic(w, r)

	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		reject(w, http.StatusBadRequest, msgInvalidID)
		return
	}

	res := rs.client.From(rs.table).
		Delete().
		Eq("id", id).
		Execute(r.Context())
	if res.Err != nil {
		rs.fail(w, r, http.StatusBadRequest, "Failed to delete "+rs.table, res.Err)
		return
	}
	if len(res.Data) == 0 {
		reject(w, http.StatusNotFound, msgNotFound)
		return
	}

	rs.notify(r.Context(), "deleted", res.First())
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]any{"message": rs.table + " deleted successfully"},
	})
}

// recoverPanic is the outermost safety net: anything thrown past the
// expected error paths becomes a structured 500 instead of escaping to
// the server.
func (rs *Resource) recoverPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		rs.fail(w, r, http.StatusInternalServerError, "Internal server error", fmt.Errorf("panic: %v", rec))
	}
}

func (rs *Resource) notify(ctx context.Context, action string, row db.Row) {
	if rs.notifier == nil || row == nil {
		return
	}
	if id, ok := rowID(row); ok {
		rs.notifier.NotifyChange(ctx, rs.table, action, id)
	}
}

func rowID(row db.Row) (int64, bool) {
	switch v := row["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func decodeBody(r *http.Request) (db.Row, error) {
	var body db.Row
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// parseID accepts the id path parameter; anything that is not an
// integer is rejected before any data access.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseBounded parses a positive integer query parameter, falling back
// to def and clamping to [min, max]. max <= 0 means unbounded above.
func parseBounded(raw string, def, min, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		n = def
	}
	if n < min {
		n = min
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}
