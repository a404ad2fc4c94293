package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Rrens/chatwidget/internal/api/response"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decode reads a JSON body into input and validates it, writing a 400 on failure.
// With allowEmpty an empty body leaves input at its zero value.
func decode(w http.ResponseWriter, r *http.Request, input any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(input); err != nil {
		if !allowEmpty || !errors.Is(err, io.EOF) {
			response.BadRequest(w, "invalid request body")
			return false
		}
	}

	if err := validate.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string)
			for _, e := range validationErrors {
				field := e.Field()
				tag := e.Tag()
				switch tag {
				case "required":
					fields[field] = "field is required"
				case "uuid4":
					fields[field] = "must be a version 4 UUID"
				case "max":
					fields[field] = "must be at most " + e.Param() + " characters"
				default:
					fields[field] = "validation failed on " + tag
				}
			}
			response.BadRequest(w, fields)
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}

	return true
}
