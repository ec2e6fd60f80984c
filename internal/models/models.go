package models

import "time"

// Country is the attribution returned by a geolocation store.
// Code is the ISO 3166-1 alpha-2 country code.
type Country struct {
	Code string `json:"country_code"`
	Name string `json:"country_name"`
}

// Classification is the payload served by the classify endpoint.
// Country is the ISO code of the resolved client's country, or null when
// the address could not be attributed. RequestTime is captured when the
// classification is assembled, not when the request arrived.
type Classification struct {
	RequestTime time.Time `json:"request_time"`
	Country     *string   `json:"country"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CountryNotFoundError is one entry of the structured not-found body served
// by the country endpoint. The shape is a compatibility surface with the
// retired location service and must not change.
type CountryNotFoundError struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// CountryNotFoundResponse is the body served when the country endpoint has
// no attribution for the resolved client address.
type CountryNotFoundResponse struct {
	Errors  []CountryNotFoundError `json:"errors"`
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
}

// NewCountryNotFound builds the fixed not-found body.
func NewCountryNotFound() CountryNotFoundResponse {
	return CountryNotFoundResponse{
		Errors: []CountryNotFoundError{
			{Domain: "geolocation", Reason: "notFound", Message: "Not found"},
		},
		Code:    404,
		Message: "Not found",
	}
}
