package serverutils

// Response is the envelope for error replies and service-level endpoints.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

func ErrorResponse(message string, errs interface{}) Response {
	return Response{Success: false, Message: message, Errors: errs}
}
