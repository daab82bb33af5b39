package serverutils

// APIResponse is the envelope for every JSON payload the API returns.
// Status is "ok", "complete" (perspective submission that triggered
// completion processing) or "err".
type APIResponse[T any] struct {
	Status string `json:"status"`
	Code   int    `json:"code,omitempty"`
	Msg    string `json:"msg,omitempty"`
	Data   T      `json:"data,omitempty"`
}

func SuccessResponse[T any](msg string, data T) APIResponse[T] {
	return APIResponse[T]{
		Status: "ok",
		Msg:    msg,
		Data:   data,
	}
}

func CompleteResponse[T any](msg string, data T) APIResponse[T] {
	return APIResponse[T]{
		Status: "complete",
		Msg:    msg,
		Data:   data,
	}
}

func ErrorResponse(code int, msg string) APIResponse[any] {
	return APIResponse[any]{
		Status: "err",
		Code:   code,
		Msg:    msg,
	}
}
