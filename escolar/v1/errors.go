package v1

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for any response outside the 2xx range.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed with status code %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status of an API failure, or 0 when err
// did not come from a server response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// UserMessage maps an API failure to the message shown to the user.
func UserMessage(err error, fallback string) string {
	switch StatusCode(err) {
	case http.StatusUnauthorized:
		return "Por favor, inicia sesión nuevamente"
	case http.StatusForbidden:
		return "No tienes permisos suficientes"
	case http.StatusNotFound:
		return "Recurso no encontrado"
	case http.StatusBadRequest:
		return "Datos inválidos"
	}
	return fallback
}
