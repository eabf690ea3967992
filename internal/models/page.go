package models

// Page limits a listing. The zero value means no paging.
type Page struct {
	Page  int64
	Limit int64
}

func (p Page) Enabled() bool {
	return p.Page > 0 && p.Limit > 0
}

func (p Page) Skip() int64 {
	if !p.Enabled() {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
