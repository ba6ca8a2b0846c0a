// Package service implements the application logic between the HTTP API and
// the store.
package service

import (
	"github.com/meganoshop/megano-server/internal/validation"
)

// requestValidator validates incoming request structs; failures surface as
// VALIDATION domain errors naming the offending JSON fields.
var requestValidator = validation.New()
