// Package listing defines the zero-price listing records produced by the
// extractor and persisted by the result store, plus the link-keyed diff
// used to decide what is new on each run.
package listing

// DefaultPriceText is recorded when a qualifying tile showed no visible price.
const DefaultPriceText = "€0.00"

// Listing is one zero-price product tile. Link is the unique identifier.
// Values are built by the extractor and never modified afterwards.
type Listing struct {
	Title     string
	PriceText string
	Link      string
}

// Entry is the persisted form of a Listing.
type Entry struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Link  string `json:"link"`
}

// Entry converts l to its persisted form.
func (l Listing) Entry() Entry {
	return Entry{Title: l.Title, Price: l.PriceText, Link: l.Link}
}
