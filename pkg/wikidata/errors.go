package wikidata

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates a failure in network communication.
	ErrNetwork = errors.New("wikidata network error")
	// ErrParse indicates a failure to parse the response.
	ErrParse = errors.New("wikidata parse error")
	// ErrAPI indicates the API answered with an error object.
	ErrAPI = errors.New("wikidata api error")
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("wikidata entity not found")
	// ErrInvalidID indicates a malformed entity id; no request is sent.
	ErrInvalidID = errors.New("wikidata invalid entity id")
	// ErrInvalidTitle indicates an empty page title or one containing '|'.
	ErrInvalidTitle = errors.New("wikidata invalid page title")
)

// APIError is the error object of a MediaWiki API response.
// It matches ErrAPI, and ErrNotFound for unknown entities.
type APIError struct {
	Code string
	Info string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wikidata api error %s: %s", e.Code, e.Info)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAPI:
		return true
	case ErrNotFound:
		return e.Code == "no-such-entity"
	}
	return false
}
