package httpdto

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// StatusResponse is the {msg, status} envelope the directory endpoints and
// the error middleware answer with.
type StatusResponse struct {
	Msg    string `json:"msg"`
	Status bool   `json:"status"`
	Data   any    `json:"data,omitempty"`
}

func NewStatusResponse(msg string, status bool) StatusResponse {
	return StatusResponse{Msg: msg, Status: status}
}

type MsgResponse struct {
	Msg string `json:"msg"`
}

type ErrorMessage struct {
	Error string `json:"error"`
}
