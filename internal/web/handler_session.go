package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/vbonduro/scaninv/internal/flow"
)

func (s *Server) handleOpenSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Open()
	s.writeJSON(w, http.StatusCreated, map[string]string{
		"id":    sess.ID(),
		"state": sess.State().String(),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]string{"state": sess.State().String()})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body struct {
		Barcode string `json:"barcode"`
	}
	if !s.decodeJSON(w, r, &body) {
		return
	}

	s.scan(w, r, sess, body.Barcode)
}

// scan detaches the lookup from the request; the resolver timeout bounds it.
func (s *Server) scan(w http.ResponseWriter, r *http.Request, sess *flow.Session, barcode string) {
	out := sess.Scan(context.WithoutCancel(r.Context()), barcode)

	resp := outcomeJSON{
		Outcome:  out.Kind.String(),
		Barcode:  out.Barcode,
		RecordID: out.RecordID,
		Mode:     out.Mode,
		State:    sess.State().String(),
	}
	if out.Err != nil {
		resp.Error = "lookup failed, try again"
		s.logger.Warn("scan lookup failed", "session_id", sess.ID(), "barcode", out.Barcode, "error", out.Err)
	}
	s.writeJSON(w, outcomeStatus(out.Kind), resp)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*flow.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if errors.Is(err, flow.ErrUnknownSession) {
		s.writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to get session")
		return nil, false
	}
	return sess, true
}
