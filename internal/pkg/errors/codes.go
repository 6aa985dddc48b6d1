package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2006
	ErrAuthTokenExpired = 2007

	// File errors (3000-3999)
	ErrFileNotFound      = 3000
	ErrFileInvalidInput  = 3001
	ErrFileInvalidID     = 3002
	ErrFileQuotaExceeded = 3003
	ErrFileForbidden     = 3004
	ErrFileStorageFailed = 3005
	ErrFileTooLarge      = 3006
	ErrThumbnailUnavail  = 3007
	ErrGroupNotFound     = 3100
	ErrGroupInvalidInput = 3101

	// Share errors (4000-4999)
	ErrShareNotFound      = 4000
	ErrShareInvalidExpiry = 4001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Auth errors
	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},

	// File errors
	ErrFileNotFound:      {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileInvalidInput:  {ErrFileInvalidInput, http.StatusBadRequest, "Invalid file parameters"},
	ErrFileInvalidID:     {ErrFileInvalidID, http.StatusBadRequest, "Invalid file identifier"},
	ErrFileQuotaExceeded: {ErrFileQuotaExceeded, http.StatusBadRequest, "Storage quota exceeded"},
	ErrFileForbidden:     {ErrFileForbidden, http.StatusForbidden, "You do not have access to this file"},
	ErrFileStorageFailed: {ErrFileStorageFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrFileTooLarge:      {ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File size exceeds limit"},
	ErrThumbnailUnavail:  {ErrThumbnailUnavail, http.StatusServiceUnavailable, "Thumbnail service unavailable"},
	ErrGroupNotFound:     {ErrGroupNotFound, http.StatusNotFound, "Group not found"},
	ErrGroupInvalidInput: {ErrGroupInvalidInput, http.StatusBadRequest, "Invalid group parameters"},

	// Share errors
	ErrShareNotFound:      {ErrShareNotFound, http.StatusNotFound, "Share not found"},
	ErrShareInvalidExpiry: {ErrShareInvalidExpiry, http.StatusBadRequest, "Share expiry must be in the future"},
}

// lookup returns the Code for a given error code
func lookup(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return lookup(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return lookup(code).Message
}

// IsClientError checks if the code represents a client error (4xx)
func IsClientError(code int) bool {
	status := GetHTTPStatus(code)
	return status >= 400 && status < 500
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
