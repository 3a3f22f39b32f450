// Package linkareer scrapes contest postings from linkareer.com: listing
// pages for detail URLs, then detail pages for activity records.
package linkareer

import (
	"strconv"
	"strings"
)

// DefaultBaseURL is the site every relative listing href is resolved against
const DefaultBaseURL = "https://linkareer.com"

// listingQuery selects contests of every category, newest first
const listingQuery = "/list/contest?filterType=CATEGORY&orderBy_direction=DESC&orderBy_field=CREATED_AT&page="

// Markup contract of the site. Class names carry generated suffixes, so the
// stable prefix is matched.
const (
	SelectorListingItem  = "div.list-body a[href^='/activity/']"
	SelectorDetailHeader = "header[class^='ActivityInformationHeader__']"
	SelectorTitle        = SelectorDetailHeader + " h1"
	SelectorHomepage     = "dl[class^='HomepageField__'] a"
	SelectorCategories   = "ul[class^='CategoryChipList__'] p"
	SelectorStartDate    = ".start-at + span"
	SelectorEndDate      = ".end-at + span"
	SelectorCardImage    = "img.card-image"
	SelectorPosterImage  = "div.poster > img"
)

// ListingURL returns the URL of listing page n under base
func ListingURL(base string, n int) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + listingQuery + strconv.Itoa(n)
}
