package ranapi

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError - бэкенд ответил не-2xx. Тело сохраняем для логов.
type StatusError struct {
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("ranapi: %s: %s: %s", e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("ranapi: %s: %s", e.Path, e.Status)
}

// Temporary - 5xx и 429 имеет смысл повторить на следующем цикле опроса.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// IsStatus проверяет, что в цепочке ошибок есть StatusError с кодом code.
func IsStatus(err error, code int) bool {
	var sErr *StatusError
	return errors.As(err, &sErr) && sErr.Code == code
}
