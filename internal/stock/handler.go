package stock

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockdesk/stockdesk/internal/platform/httpx"
	"github.com/stockdesk/stockdesk/internal/shared"
	"github.com/stockdesk/stockdesk/internal/view"
)

// Handler wires inventory HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock", h.handleList)
	r.Post("/stock/bulk-delete", h.handleBulkDelete)
}

type bulkDeleteResponse struct {
	Success      bool     `json:"success"`
	DeletedCount int      `json:"deleted_count"`
	Errors       []string `json:"errors"`
	Message      string   `json:"message"`
}

func (h *Handler) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	// Multi-value field with a legacy single-value fallback.
	tagIDs := r.PostForm["tag_ids"]
	if len(tagIDs) == 0 {
		if legacy := r.PostFormValue("tag_id"); legacy != "" {
			tagIDs = []string{legacy}
		}
	}

	identity := shared.IdentityFromContext(r.Context())
	result, err := h.service.BulkDelete(r.Context(), BulkDeleteInput{TagIDs: tagIDs, Actor: identity})
	if err != nil {
		if !shared.IsValidation(err) && !shared.IsRateLimited(err) {
			h.logger.Error("bulk delete failed", slog.Any("error", err))
		}
		if httpx.WantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.renderResult(w, r, BulkDeleteResult{}, shared.UserSafeMessage(err), http.StatusBadRequest)
		return
	}

	message := fmt.Sprintf("%d item dihapus", result.Deleted)
	if len(result.RowErrors) > 0 {
		message = fmt.Sprintf("%d item dihapus, %d gagal", result.Deleted, len(result.RowErrors))
	}

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, bulkDeleteResponse{
			Success:      result.Deleted > 0,
			DeletedCount: result.Deleted,
			Errors:       result.RowErrors,
			Message:      message,
		})
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess != nil && result.Deleted > 0 {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: message})
	}
	h.renderResult(w, r, result, message, http.StatusOK)
}

type listPageData struct {
	Items      []Item
	Search     string
	Location   string
	Pagination shared.Pagination
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := ListFilter{Search: q.Get("search"), Location: q.Get("location"), Page: page, PerPage: 50}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := listPageData{
		Items:      items,
		Search:     filter.Search,
		Location:   filter.Location,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	}
	h.render(w, r, "pages/stock/list.html", "Inventori", data, http.StatusOK)
}

type resultPageData struct {
	Result  BulkDeleteResult
	Message string
}

func (h *Handler) renderResult(w http.ResponseWriter, r *http.Request, result BulkDeleteResult, message string, status int) {
	h.render(w, r, "pages/stock/bulk_result.html", "Hasil Hapus Massal", resultPageData{Result: result, Message: message}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render stock page", slog.Any("error", err), slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
