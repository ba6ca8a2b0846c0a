package api

import (
	"encoding/json/v2"
	"fmt"
	"net/http"
	"time"
)

// maxBodySize caps request bodies. The API only takes small JSON documents.
const maxBodySize = 1 << 20

// decodeJSON reads and decodes a JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer body.Close()

	if err := json.UnmarshalRead(body, dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// basketToken reads the anonymous basket token cookie, if present.
func (s *Server) basketToken(r *http.Request) string {
	cookie, err := r.Cookie(s.basketCookie.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setBasketCookie hands a freshly minted anonymous token to the client.
func (s *Server) setBasketCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.basketCookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.basketCookie.TTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearBasketCookie expires the anonymous token cookie. Called after a merge,
// when the anonymous basket no longer exists.
func (s *Server) clearBasketCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.basketCookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
