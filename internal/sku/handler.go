package sku

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockdesk/stockdesk/internal/clients"
	"github.com/stockdesk/stockdesk/internal/input"
	"github.com/stockdesk/stockdesk/internal/platform/httpx"
	"github.com/stockdesk/stockdesk/internal/shared"
	"github.com/stockdesk/stockdesk/internal/view"
)

// Handler wires SKU HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	clients   clients.Repository
	templates *view.Engine
	csrf      *shared.CSRFManager
	validate  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, clientRepo clients.Repository, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		clients:   clientRepo,
		templates: templates,
		csrf:      csrf,
		validate:  validator.New(),
	}
}

// MountAPIRoutes registers the JSON endpoints.
func (h *Handler) MountAPIRoutes(r chi.Router) {
	r.Get("/sku/{code}", h.handleLookup)
}

// MountRoutes registers the HTML endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sku", h.handleList)
	r.Get("/sku/{code}/edit", h.showEditForm)
	r.Post("/sku/{code}/edit", h.handleEdit)
}

// lookupIdentity keys the read rate limit. Authenticated sessions get a
// per-user window; anonymous integrations are isolated per client IP so one
// caller cannot exhaust the budget for everyone.
func lookupIdentity(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if user := strings.TrimSpace(sess.User()); user != "" {
			return "user:" + user
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	identity := lookupIdentity(r)
	includeInventory := r.URL.Query().Get("include_inventory") == "1"

	result, err := h.service.Lookup(r.Context(), identity, chi.URLParam(r, "code"), includeInventory)
	if err != nil {
		if !shared.IsValidation(err) && !shared.IsRateLimited(err) {
			h.logger.Error("sku lookup failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type listPageData struct {
	Records    []Record
	Search     string
	Pagination shared.Pagination
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := ListFilter{Search: q.Get("search"), Page: page, PerPage: 20}
	if clientStr := q.Get("client_id"); clientStr != "" {
		if id, err := strconv.ParseInt(clientStr, 10, 64); err == nil {
			filter.ClientID = id
		}
	}

	records, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sku failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := listPageData{
		Records:    records,
		Search:     filter.Search,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	}
	h.render(w, r, "pages/sku/list.html", "Daftar SKU", data, http.StatusOK)
}

type editForm struct {
	ItemCode     string
	Description  string
	PackConfig   string
	EAN          string
	SerialNumber string
	Origin       string
	Dimension    string
	ProductGroup string
	ClientID     int64
	Fragile      bool
	HighSecurity bool
	UnitWeight   float64
	EachWeight   float64
	PackedWeight float64
}

type editPageData struct {
	Form    editForm
	Clients []clients.Client
	Errors  map[string]string
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if shared.IsValidation(err) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	form := editForm{
		ItemCode:     rec.ItemCode,
		Description:  rec.Description,
		PackConfig:   rec.PackConfig,
		EAN:          rec.EAN,
		SerialNumber: rec.SerialNumber,
		Origin:       rec.Origin,
		Dimension:    rec.Dimension,
		ProductGroup: rec.ProductGroup,
		ClientID:     rec.ClientID,
		Fragile:      rec.Fragile,
		HighSecurity: rec.HighSecurity,
		UnitWeight:   rec.UnitWeight,
		EachWeight:   rec.EachWeight,
		PackedWeight: rec.PackedWeight,
	}
	h.renderEdit(w, r, form, map[string]string{}, http.StatusOK)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	code := chi.URLParam(r, "code")
	form, formErrors := parseEditForm(r)
	form.ItemCode = code

	in := UpdateInput{
		Description:  form.Description,
		PackConfig:   form.PackConfig,
		EAN:          form.EAN,
		SerialNumber: form.SerialNumber,
		Origin:       form.Origin,
		Dimension:    form.Dimension,
		ProductGroup: form.ProductGroup,
		ClientID:     form.ClientID,
		Fragile:      form.Fragile,
		HighSecurity: form.HighSecurity,
		UnitWeight:   form.UnitWeight,
		EachWeight:   form.EachWeight,
		PackedWeight: form.PackedWeight,
	}
	if err := h.validate.Struct(in); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			formErrors[fieldErr.Field()] = "Nilai tidak valid"
		}
	}

	if len(formErrors) == 0 {
		identity := shared.IdentityFromContext(r.Context())
		affected, err := h.service.Update(r.Context(), identity, code, in)
		switch {
		case err != nil:
			h.logger.Error("update sku failed", slog.Any("error", err), slog.String("item_code", code))
			formErrors["general"] = shared.UserSafeMessage(err)
		case affected == 0:
			formErrors["general"] = "Tidak ada baris yang diperbarui"
		default:
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "SKU berhasil diperbarui"})
			}
			http.Redirect(w, r, "/sku/"+code+"/edit", http.StatusSeeOther)
			return
		}
	}
	h.renderEdit(w, r, form, formErrors, http.StatusBadRequest)
}

func (h *Handler) renderEdit(w http.ResponseWriter, r *http.Request, form editForm, formErrors map[string]string, status int) {
	clientList, err := h.clients.List(r.Context())
	if err != nil {
		h.logger.Error("list clients failed", slog.Any("error", err))
	}
	data := editPageData{Form: form, Clients: clientList, Errors: formErrors}
	h.render(w, r, "pages/sku/edit.html", "Ubah SKU", data, status)
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
		h.logger.Error("render sku page", slog.Any("error", err), slog.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseEditForm(r *http.Request) (editForm, map[string]string) {
	formErrors := make(map[string]string)
	form := editForm{
		Description:  input.SanitizeString(r.PostFormValue("description"), 255),
		PackConfig:   input.SanitizeString(r.PostFormValue("pack_config"), 64),
		EAN:          input.SanitizeString(r.PostFormValue("ean"), 32),
		SerialNumber: input.SanitizeString(r.PostFormValue("serial_number"), 64),
		Origin:       input.SanitizeString(r.PostFormValue("origin"), 64),
		Dimension:    input.SanitizeString(r.PostFormValue("dimension"), 64),
		ProductGroup: input.SanitizeString(r.PostFormValue("product_group"), 64),
		Fragile:      r.PostFormValue("fragile") == "1",
		HighSecurity: r.PostFormValue("high_security") == "1",
	}
	if clientID, err := strconv.ParseInt(r.PostFormValue("client_id"), 10, 64); err == nil {
		form.ClientID = clientID
	} else {
		formErrors["client_id"] = "Client wajib diisi"
	}
	if weight, err := input.ParseFloat("unit_weight", r.PostFormValue("unit_weight"), 0); err == nil {
		form.UnitWeight = weight
	} else {
		formErrors["unit_weight"] = "Berat tidak valid"
	}
	if weight, err := input.ParseFloat("each_weight", r.PostFormValue("each_weight"), 0); err == nil {
		form.EachWeight = weight
	} else {
		formErrors["each_weight"] = "Berat tidak valid"
	}
	if weight, err := input.ParseFloat("packed_weight", r.PostFormValue("packed_weight"), 0); err == nil {
		form.PackedWeight = weight
	} else {
		formErrors["packed_weight"] = "Berat tidak valid"
	}
	return form, formErrors
}
