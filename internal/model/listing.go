package model

// Listing はアーカイブまたは分類ページの1ページ分の一覧を表す。
// CurrentPage は1始まり。NextPage / PreviousPage は該当ページがない場合0。
type Listing struct {
	Items           []Entity `json:"items"`
	Total           int      `json:"total"`
	TotalPages      int      `json:"totalPages"`
	CurrentPage     int      `json:"currentPage"`
	HasNextPage     bool     `json:"hasNextPage"`
	HasPreviousPage bool     `json:"hasPreviousPage"`
	NextPage        int      `json:"nextPage"`
	PreviousPage    int      `json:"previousPage"`
}

// NewListing はページ番号と総ページ数から前後ページ情報を導出したListingを返す。
func NewListing(items []Entity, total, totalPages, currentPage int) *Listing {
	if items == nil {
		items = []Entity{}
	}
	l := &Listing{
		Items:           items,
		Total:           total,
		TotalPages:      totalPages,
		CurrentPage:     currentPage,
		HasNextPage:     currentPage < totalPages,
		HasPreviousPage: currentPage > 1,
	}
	if l.HasNextPage {
		l.NextPage = currentPage + 1
	}
	if l.HasPreviousPage {
		l.PreviousPage = currentPage - 1
	}
	return l
}
