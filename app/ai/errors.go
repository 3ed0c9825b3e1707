package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout           = errors.New("AI request timed out")
	ErrMalformedResponse = errors.New("malformed AI response")
)

// shapeRejectionCodes are the statuses a vendor answers with when it does
// not understand the response_format hint.
var shapeRejectionCodes = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnprocessableEntity: true,
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI API returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) ShapeRejected() bool {
	return shapeRejectionCodes[e.Code]
}
