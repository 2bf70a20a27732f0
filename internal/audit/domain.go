// Package audit menyajikan timeline jejak audit beserta ekspor CSV.
package audit

import "time"

// TimelineRow satu baris pada timeline audit.
type TimelineRow struct {
	At     time.Time
	Actor  string
	Action string
	Detail string
	Meta   string
}

// TimelineFilters menyaring rentang waktu dan atribut baris.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Action   string
	Page     int
	PageSize int
}

// PagingInfo informasi halaman untuk template.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}

// FiltersViewModel nilai filter yang dipantulkan kembali ke form.
type FiltersViewModel struct {
	From   time.Time
	To     time.Time
	Actor  string
	Action string
}

// ViewModel data lengkap halaman timeline.
type ViewModel struct {
	Filters FiltersViewModel
	Rows    []TimelineRow
	Paging  PagingInfo
}
