package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stockdesk/stockdesk/internal/audit"
	"github.com/stockdesk/stockdesk/internal/view"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newAuditHandler(t *testing.T, service *stubTimelineService) *Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	handler := NewHandler(nil, service, templates, audit.CSVExporter{})
	handler.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }
	return handler
}

func TestTimelineRendersRows(t *testing.T) {
	rows := []audit.TimelineRow{{At: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), Actor: "auditor", Action: "sku:update", Detail: "updated SKU WID-100"}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	handler := newAuditHandler(t, service)
	req := httptest.NewRequest(http.MethodGet, "/audit?from=2026-03-01&to=2026-03-15", nil)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "auditor") {
		t.Fatalf("expected actor in response: %s", body)
	}
	if service.lastFilters.From.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("unexpected filters: %+v", service.lastFilters)
	}
}

func TestTimelineRejectsReversedRange(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(t, service)
	req := httptest.NewRequest(http.MethodGet, "/audit?from=2026-03-20&to=2026-03-01", nil)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestTimelineDefaultsToRecentWindow(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(t, service)
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := service.lastFilters.To.Format("2006-01-02"); got != "2026-03-15" {
		t.Fatalf("unexpected to filter: %s", got)
	}
	if got := service.lastFilters.From.Format("2006-01-02"); got != "2026-03-08" {
		t.Fatalf("unexpected from filter: %s", got)
	}
}

func TestExportCSV(t *testing.T) {
	rows := []audit.TimelineRow{{Actor: "auditor", Action: "stock:bulk_delete"}}
	service := &stubTimelineService{exportRows: rows}
	handler := newAuditHandler(t, service)
	req := httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2026-03-01&to=2026-03-05", nil)
	rr := httptest.NewRecorder()
	handler.handleExport(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ctype := rr.Header().Get("Content-Type"); !strings.Contains(ctype, "text/csv") {
		t.Fatalf("unexpected content-type: %s", ctype)
	}
	if !strings.Contains(rr.Body.String(), "auditor") {
		t.Fatalf("expected row in csv body")
	}
}
