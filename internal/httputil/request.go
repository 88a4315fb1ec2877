package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"reflect"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// ContextURL is the gin context key holding the external base URL of the API.
const ContextURL = "tally-url"

// BindData binds the JSON body of the request to data.
func BindData(c *gin.Context, data any) error {
	if err := c.ShouldBindJSON(data); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrRequestBodyEmpty
		}

		// Type mismatches and missing required fields are reported as they are,
		// they tell the user which field to fix
		var jsonUnmarshalTypeError *json.UnmarshalTypeError
		var validationErrors validator.ValidationErrors
		if errors.As(err, &jsonUnmarshalTypeError) || errors.As(err, &validationErrors) {
			return err
		}

		log.Error().Str("request-id", requestid.Get(c)).Msgf("%T: %v", err, err.Error())
		return ErrInvalidBody
	}

	return nil
}

// GetURLFields returns the names of all fields of filter whose query
// parameter is set in url.
//
// This allows handlers to filter for zero values without defining them
// as pointer fields.
func GetURLFields(url *url.URL, filter any) []string {
	var setFields []string

	val := reflect.Indirect(reflect.ValueOf(filter))
	for i := 0; i < val.NumField(); i++ {
		field := val.Type().Field(i)
		if url.Query().Has(field.Tag.Get("form")) {
			setFields = append(setFields, field.Name)
		}
	}

	return setFields
}
