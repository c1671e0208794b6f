package handler

import "net/http"

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty renders 204 No Content without a body.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}

// EmptyWithStatus renders the given status code without a body.
func EmptyWithStatus(status int) Response {
	return emptyResponse{status: status}
}
