package handler

// Response is the uniform envelope for handler-produced replies. Success
// carries data under a stable key; Failure covers the rejections handlers
// issue inline (malformed bodies, missing actor) — typed domain errors skip
// this envelope entirely and surface through the error-handler middleware.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func Success(data interface{}) Response {
	return Response{Status: statusSuccess, Data: data}
}

func Failure(message string) Response {
	return Response{Status: statusError, Message: message}
}
