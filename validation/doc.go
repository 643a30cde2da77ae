// Package validation validates agent configuration documents and HTTP inputs.
//
// Struct tag validation wraps go-playground/validator and reports field
// errors by their json path:
//
//	type SessionRequest struct {
//	    Room string `json:"room" validate:"required,max=128"`
//	}
//	err := validation.Validate(req)
//
// Loose values such as query parameters go through a Checker:
//
//	err := validation.New().Required("room", room).Identifier("room", room).Err()
package validation
