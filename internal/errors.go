package internal

import (
	"fmt"

	"github.com/go-sess/sess/internal/model"
)

// TooManyRedirectsError is returned when a redirect chain exceeds the
// session's (or request's) bound. Response carries the last response
// received, with its redirect history attached.
type TooManyRedirectsError struct {
	Response *model.Response
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("stopped after %d redirects", len(e.Response.History)+1)
}
