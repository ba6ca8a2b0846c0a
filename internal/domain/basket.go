package domain

import "time"

// IdentityKind says how a basket is keyed.
type IdentityKind string

const (
	// IdentityAnonymous keys a basket by an opaque client-held token.
	IdentityAnonymous IdentityKind = "anonymous"
	// IdentityUser keys a basket by a stable user ID.
	IdentityUser IdentityKind = "user"
)

// BasketIdentity is the resolved owner of a basket: either an anonymous
// token or a user ID, never both. NewlyMinted is set when the anonymous
// token was generated for this request, so the transport layer knows to
// hand it back to the client.
type BasketIdentity struct {
	Kind        IdentityKind `json:"kind"`
	Key         string       `json:"key"`
	NewlyMinted bool         `json:"-"`
}

// Basket is a collection of lines owned by exactly one identity.
// Exactly one of UserID and AnonymousToken is set. An anonymous basket
// may be promoted to user ownership during the login merge, after which
// the token is cleared.
type Basket struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         string    `json:"user_id,omitempty"`
	AnonymousToken string    `json:"-"` // opaque, never serialized back out
}

// IsAnonymous reports whether the basket is keyed by an anonymous token.
func (b *Basket) IsAnonymous() bool {
	return b.UserID == "" && b.AnonymousToken != ""
}

// BasketLine is one (product, quantity) entry in a basket.
// (BasketID, ProductID) pairs are unique; quantity is always positive -
// a line that would reach zero is deleted instead.
type BasketLine struct {
	ID        string `json:"id"`
	BasketID  string `json:"basket_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// BasketItem is the read model for one basket line: the product fields a
// storefront needs plus the quantity held. Lists of BasketItems are always
// ordered by ProductID so unchanged baskets serialize identically.
type BasketItem struct {
	ProductID    string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Price        Money   `json:"price"`
	FreeDelivery bool    `json:"free_delivery"`
	Rating       float64 `json:"rating"`
	Quantity     int     `json:"count"`
}

// TotalCost sums price x quantity over items. Items priced in a different
// currency than the first item are an error.
func TotalCost(items []BasketItem) (Money, error) {
	if len(items) == 0 {
		return Money{}, nil
	}

	total := Money{Currency: items[0].Price.Currency}
	for _, item := range items {
		var err error
		total, err = total.Add(item.Price.MulInt(int64(item.Quantity)))
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
