package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"cdn-blocker/lib/errdefs"
)

// AllowPortRequest is the body of POST /api/v1/allow-port.
type AllowPortRequest struct {
	Port string `json:"port"`
}

// FlushResponse is the body of a successful flush.
type FlushResponse struct {
	Flushed bool `json:"flushed"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Status()
	if err != nil {
		RespondInternalError(w, err.Error())
		return
	}
	RespondOK(w, report)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Apply()
	if err != nil {
		respondOperationError(w, err)
		return
	}
	RespondOK(w, report)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Flush(); err != nil {
		respondOperationError(w, err)
		return
	}
	RespondOK(w, FlushResponse{Flushed: true})
}

func (s *Server) handleAllowPort(w http.ResponseWriter, r *http.Request) {
	var req AllowPortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondValidationError(w, "invalid JSON body")
		return
	}

	if err := s.service.AllowPort(req.Port); err != nil {
		respondOperationError(w, err)
		return
	}
	RespondOK(w, map[string]string{"allowed_port": req.Port})
}

// respondOperationError maps the error taxonomy onto HTTP status codes:
// bad operator input is 400, upstream list problems are 502, everything
// else (including partial applies) is 500.
func respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errdefs.ErrInvalidPort):
		RespondValidationError(w, err.Error())
	case errors.Is(err, errdefs.ErrFetchFailed), errors.Is(err, errdefs.ErrInvalidList):
		RespondBadGateway(w, err.Error())
	default:
		RespondInternalError(w, err.Error())
	}
}
