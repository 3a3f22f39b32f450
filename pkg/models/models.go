package models

import "strings"

// ActivityRecord represents one extracted activity detail page.
// Optional fields are nil when the page did not provide them.
type ActivityRecord struct {
	Title       *string  `json:"activity_title"`
	HomepageURL *string  `json:"activity_url"`
	Categories  []string `json:"activity_category"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	ImageURL    *string  `json:"activity_img"`
	DetailURL   string   `json:"detail_url"`
}

// NewActivityRecord returns an empty record keyed by detailURL
func NewActivityRecord(detailURL string) *ActivityRecord {
	return &ActivityRecord{
		Categories: []string{},
		DetailURL:  detailURL,
	}
}

// ListingPage is one listing page number and the detail URLs found on it
type ListingPage struct {
	Number int      `json:"page"`
	URLs   []string `json:"urls"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "" for nil
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// JoinCategories joins categories with sep, skipping nothing
func (r *ActivityRecord) JoinCategories(sep string) string {
	return strings.Join(r.Categories, sep)
}

// Empty reports whether no optional field was found
func (r *ActivityRecord) Empty() bool {
	return r.Title == nil && r.HomepageURL == nil && len(r.Categories) == 0 &&
		r.StartDate == nil && r.EndDate == nil && r.ImageURL == nil
}
