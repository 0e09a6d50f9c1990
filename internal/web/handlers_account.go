package web

import (
	"net/http"

	"github.com/communication-ltd/portal/internal/gateway"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "My profile")
	sess := currentSession(r.Context())

	details, err := s.backend.UserDetails(r.Context(), sess.Token)
	if err != nil {
		if s.expireSession(w, r, err) {
			return
		}
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadGateway, "profile.tmpl", p)
		return
	}
	p.Data = details
	s.render(w, http.StatusOK, "profile.tmpl", p)
}

func (s *Server) showChangePassword(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "change_password.tmpl", s.newPage(r, "Change password"))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Change password")
	sess := currentSession(r.Context())

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "change_password.tmpl", p)
		return
	}
	req := gateway.ChangePasswordRequest{
		CurrentPassword: r.PostFormValue("current_password"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	// The username comes from the session, the form never carries it.
	if id, ok := sess.Store.Current(); ok {
		req.Username = id.Username
	}

	if req.NewPassword != req.ConfirmPassword {
		p.Error = "Passwords do not match."
		s.render(w, http.StatusBadRequest, "change_password.tmpl", p)
		return
	}

	if _, err := s.backend.ChangePassword(gateway.WithToken(r.Context(), sess.Token), req); err != nil {
		if s.expireSession(w, r, err) {
			return
		}
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "change_password.tmpl", p)
		return
	}

	p.Notice = "Your password has been changed."
	s.render(w, http.StatusOK, "change_password.tmpl", p)
}
