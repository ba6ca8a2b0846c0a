// Package store defines storage-level types and errors shared by the
// persistence implementations.
package store

// Sort fields accepted by ProductFilter.
const (
	SortByDate    = "date"
	SortByPrice   = "price"
	SortByRating  = "rating"
	SortByReviews = "reviews"
)

// ProductFilter narrows and orders a catalog listing. Zero values mean
// "no constraint".
type ProductFilter struct {
	// Title matches products whose title contains the string,
	// case-insensitively.
	Title string
	// CategoryID restricts to a single category.
	CategoryID string
	// Tag restricts to products carrying the tag ID.
	Tag string
	// FreeDelivery, when set, restricts by the free-delivery flag.
	FreeDelivery *bool
	// Available restricts to products with stock on hand.
	Available bool
	// MinPrice and MaxPrice bound the unit price, inclusive. Empty
	// strings leave the bound open.
	MinPrice string
	MaxPrice string

	// Sort is one of the SortBy constants; empty sorts by date.
	Sort string
	// Descending reverses the sort order.
	Descending bool

	// Limit and Offset page the result. A zero Limit returns all rows.
	Limit  int
	Offset int
}
