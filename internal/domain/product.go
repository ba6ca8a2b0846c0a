package domain

import "time"

// Category groups products for catalog browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a free-form product label used for catalog filtering.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductImage is a stored image reference for a product.
type ProductImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Specification is a single name/value attribute of a product.
type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Review is a customer review of a product. Rate is 1-5.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	Rate      int       `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog item. Stock is the number of units available;
// basket quantities are clamped to it but never decrement it - stock is
// only decremented when an order is confirmed.
type Product struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	FullDescription string         `json:"full_description,omitempty"`
	Price          Money           `json:"price"`
	Stock          int             `json:"count"`
	Rating         float64         `json:"rating"`
	FreeDelivery   bool            `json:"free_delivery"`
	CategoryID     string          `json:"category_id"`
	Category       *Category       `json:"category,omitempty"`
	Tags           []Tag           `json:"tags,omitempty"`
	Images         []ProductImage  `json:"images,omitempty"`
	Reviews        []Review        `json:"reviews,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// RecalculateRating returns the mean of the given review rates, or 0 when
// there are none. Kept as a pure function so the store can persist the
// result in the same transaction that inserts the review.
func RecalculateRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rate
	}
	return float64(sum) / float64(len(reviews))
}
