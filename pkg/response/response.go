package response

// Error codes shared by all handlers
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Response is the envelope returned by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorData describes a failed request
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries pagination info for list responses
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success wraps data in a successful response
func Success(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// Paginated wraps a page of data with pagination meta
func Paginated(data interface{}, page, perPage int, total int64) *Response {
	totalPages := 0
	if perPage > 0 {
		totalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return &Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
	}
}

// Error builds an error response with a machine-readable code
func Error(code, message string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorData{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithDetails builds an error response with extra details
func ErrorWithDetails(code, message, details string) *Response {
	resp := Error(code, message)
	resp.Error.Details = details
	return resp
}

// BadRequest builds a 400 response body
func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

// ValidationError builds a 400 response body for invalid input
func ValidationError(message string) *Response {
	return Error(ErrCodeValidation, message)
}

// Unauthorized builds a 401 response body
func Unauthorized(message string) *Response {
	return Error(ErrCodeUnauthorized, message)
}

// Forbidden builds a 403 response body
func Forbidden(message string) *Response {
	return Error(ErrCodeForbidden, message)
}

// NotFound builds a 404 response body
func NotFound(message string) *Response {
	return Error(ErrCodeNotFound, message)
}

// InternalError builds a 500 response body. The message never carries
// internal error text.
func InternalError(message string) *Response {
	return Error(ErrCodeInternal, message)
}
