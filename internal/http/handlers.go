package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"followe/internal/core"
	"followe/internal/services"
	"followe/internal/store"
)

const (
	adviceCacheKey  = "advice"
	summaryCacheKey = "summary"
)

type itemView struct {
	core.Item
	NextDue string
}

func itemViews(items []core.Item, now time.Time) []itemView {
	views := make([]itemView, len(items))
	for i, it := range items {
		views[i] = itemView{
			Item:    it,
			NextDue: core.NextOccurrence(it.AnchorDate, it.Rule, now).Format("2006-01-02"),
		}
	}
	return views
}

// render executes a template, guarding against templates that failed
// to parse at startup.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "template execution failed", "error", err, "template", name)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	now := time.Now()
	items, err := s.items.GetAll(r.Context(), store.ListFilter{})
	if err != nil {
		slog.ErrorContext(r.Context(), "list items failed", "error", err)
	}
	perm, err := s.perms.Current(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "read permission failed", "error", err)
		perm = store.PermissionNotAsked
	}

	data := struct {
		Items      []itemView
		Advice     services.Advice
		Summary    services.Summary
		Permission store.PermissionState
		Categories []core.Category
		Rules      []core.Rule
		Priorities []core.Priority
	}{
		Items:      itemViews(items, now),
		Advice:     services.ComputeAdvice(items, now),
		Summary:    services.ComputeSummary(items, now),
		Permission: perm,
		Categories: []core.Category{core.Bill, core.Subscription, core.Loan, core.Rent, core.Insurance, core.OtherExpense},
		Rules:      []core.Rule{core.Once, core.Daily, core.Weekly, core.Biweekly, core.Triweekly, core.Monthly, core.Quarterly, core.Biannual, core.Yearly},
		Priorities: []core.Priority{core.Low, core.Medium, core.High},
	}

	s.render(w, r, "index.html", data)
}

// handleItems serves GET /items (filtered list fragment) and
// POST /items (create).
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListItems(w, r)
	case http.MethodPost:
		s.handleCreateItem(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{}
	switch strings.TrimSpace(r.URL.Query().Get("filter")) {
	case "", "all":
	case "active":
		active := true
		filter.Active = &active
	case "inactive":
		active := false
		filter.Active = &active
	default:
		writeErrorFragment(w, http.StatusBadRequest, "Unknown filter")
		return
	}
	if cat := strings.TrimSpace(r.URL.Query().Get("category")); cat != "" {
		c := core.Category(cat)
		if !c.Valid() {
			writeErrorFragment(w, http.StatusBadRequest, "Unknown category")
			return
		}
		filter.Category = c
	}

	items, err := s.items.GetAll(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "list items failed", "error", err)
		writeErrorFragment(w, http.StatusInternalServerError, "Error loading items")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, "items.html", itemViews(items, time.Now()))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "parse form error", "error", err, "url", r.URL.Path)
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	item, msg := parseItemForm(r)
	if msg != "" {
		writeErrorFragment(w, http.StatusUnprocessableEntity, msg)
		return
	}

	created, err := s.items.Create(r.Context(), item)
	if err != nil {
		if isValidationError(err) {
			writeValidationError(w, err)
			return
		}
		slog.ErrorContext(r.Context(), "create item failed", "error", err, "item_title", item.Title)
		writeErrorFragment(w, http.StatusInternalServerError, "Error saving item")
		return
	}

	s.invalidate()
	s.triggerReschedule(r.Context())

	slog.InfoContext(r.Context(), "item created",
		"item_id", created.ID,
		"item_title", created.Title,
		"amount_cents", created.Amount.Cents,
		"rule", string(created.Rule))

	w.Header().Set("HX-Trigger", `{"items:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Saved: ` + template.HTMLEscapeString(created.Title) + `</div>`))
}

// handleItemAction routes /items/{id}, /items/{id}/toggle and
// /items/{id}/delete.
func (s *Server) handleItemAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/items/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		s.handleUpdateItem(w, r, id)
	case "toggle":
		s.handleToggleItem(w, r, id)
	case "delete":
		s.handleDeleteItem(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		writeErrorFragment(w, http.StatusBadRequest, "Invalid request")
		return
	}

	item, msg := parseItemForm(r)
	if msg != "" {
		writeErrorFragment(w, http.StatusUnprocessableEntity, msg)
		return
	}
	item.ID = id

	updated, err := s.items.Update(r.Context(), item)
	if errors.Is(err, store.ErrNotFound) {
		writeErrorFragment(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		if isValidationError(err) {
			writeValidationError(w, err)
			return
		}
		slog.ErrorContext(r.Context(), "update item failed", "error", err, "item_id", id)
		writeErrorFragment(w, http.StatusInternalServerError, "Error saving item")
		return
	}

	s.invalidate()
	s.triggerReschedule(r.Context())

	w.Header().Set("HX-Trigger", `{"items:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Updated: ` + template.HTMLEscapeString(updated.Title) + `</div>`))
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request, id string) {
	current, err := s.items.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErrorFragment(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "load item failed", "error", err, "item_id", id)
		writeErrorFragment(w, http.StatusInternalServerError, "Error loading item")
		return
	}

	updated, err := s.items.SetActive(r.Context(), id, !current.IsActive)
	if err != nil {
		slog.ErrorContext(r.Context(), "toggle item failed", "error", err, "item_id", id)
		writeErrorFragment(w, http.StatusInternalServerError, "Error saving item")
		return
	}

	s.invalidate()
	s.triggerReschedule(r.Context())

	w.Header().Set("HX-Trigger", `{"items:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	state := "paused"
	if updated.IsActive {
		state = "active"
	}
	_, _ = w.Write([]byte(`<div class="success">` + template.HTMLEscapeString(updated.Title) + ` is now ` + state + `</div>`))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, id string) {
	err := s.items.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeErrorFragment(w, http.StatusNotFound, "Item not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "delete item failed", "error", err, "item_id", id)
		writeErrorFragment(w, http.StatusInternalServerError, "Error deleting item")
		return
	}

	s.invalidate()
	s.triggerReschedule(r.Context())

	w.Header().Set("HX-Trigger", `{"items:changed": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Deleted</div>`))
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	advice, ok := s.adviceCache.Get(adviceCacheKey)
	if !ok {
		items, err := s.items.GetAll(r.Context(), store.ListFilter{})
		if err != nil {
			slog.ErrorContext(r.Context(), "list items failed", "error", err)
			writeErrorFragment(w, http.StatusInternalServerError, "Error loading advice")
			return
		}
		advice = services.ComputeAdvice(items, time.Now())
		s.adviceCache.Set(adviceCacheKey, advice)
	}

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, "advice.html", advice)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	summary, ok := s.summaryCache.Get(summaryCacheKey)
	if !ok {
		items, err := s.items.GetAll(r.Context(), store.ListFilter{})
		if err != nil {
			slog.ErrorContext(r.Context(), "list items failed", "error", err)
			writeErrorFragment(w, http.StatusInternalServerError, "Error loading summary")
			return
		}
		summary = services.ComputeSummary(items, time.Now())
		s.summaryCache.Set(summaryCacheKey, summary)
	}

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, "summary.html", summary)
}

// handlePermission reads (GET) or records (POST) the notification
// permission. A grant triggers an immediate reschedule so reminders
// start without waiting for the next tick.
func (s *Server) handlePermission(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		perm, err := s.perms.Current(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "read permission failed", "error", err)
			http.Error(w, "error reading permission", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(map[string]string{"state": string(perm)})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		state := store.PermissionState(strings.TrimSpace(r.Form.Get("state")))
		if err := s.perms.Set(r.Context(), state); err != nil {
			if errors.Is(err, store.ErrInvalidPermission) {
				http.Error(w, "invalid permission state", http.StatusUnprocessableEntity)
				return
			}
			slog.ErrorContext(r.Context(), "store permission failed", "error", err)
			http.Error(w, "error storing permission", http.StatusInternalServerError)
			return
		}

		slog.InfoContext(r.Context(), "notification permission set", "state", string(state))
		s.triggerReschedule(r.Context())
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleForeground is called when the UI comes back into view; it
// refreshes the armed timers the same way app startup does.
func (s *Server) handleForeground(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.triggerReschedule(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyTitle, core.ErrTitleTooLong, core.ErrInvalidAmount,
		core.ErrInvalidCategory, core.ErrInvalidRule, core.ErrInvalidPriority,
		core.ErrInvalidDate, core.ErrInvalidTimeOfDay, core.ErrTooManyTimes,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
