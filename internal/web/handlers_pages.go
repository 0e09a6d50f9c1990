package web

import (
	"net/http"

	"github.com/communication-ltd/portal/internal/gateway"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.tmpl", s.newPage(r, "Home"))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "about.tmpl", s.newPage(r, "About"))
}

func (s *Server) handleDataPlans(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Data plans")

	plans, err := s.backend.DataPlans(r.Context())
	if err != nil {
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadGateway, "data_plans.tmpl", p)
		return
	}
	p.Data = plans
	s.render(w, http.StatusOK, "data_plans.tmpl", p)
}

func (s *Server) showContact(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Contact us")
	// Prefill from the profile so the visitor only writes the message.
	if p.User != nil {
		p.Form["name"] = p.User.FullName
		p.Form["email"] = p.User.Email
	}
	s.render(w, http.StatusOK, "contact.tmpl", p)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Contact us")
	sess := currentSession(r.Context())

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "contact.tmpl", p)
		return
	}
	req := gateway.ContactMessageRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Message:  r.PostFormValue("message"),
		SendCopy: r.PostFormValue("send_copy") == "on",
	}
	// The account behind the message comes from the session, never
	// from the form.
	if id, ok := sess.Store.Current(); ok {
		req.UserID = id.ID
	}
	p.Form["name"] = req.Name
	p.Form["email"] = req.Email
	p.Form["message"] = req.Message

	if req.Message == "" {
		p.Error = "Please write a message before sending."
		s.render(w, http.StatusBadRequest, "contact.tmpl", p)
		return
	}

	ack, err := s.backend.SendContactMessage(gateway.WithToken(r.Context(), sess.Token), req)
	if err != nil {
		if s.expireSession(w, r, err) {
			return
		}
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "contact.tmpl", p)
		return
	}

	p.Notice = "Thanks for reaching out. We will get back to you shortly."
	if ack != nil && ack.Message != "" {
		p.Notice = ack.Message
	}
	p.Form = map[string]string{"name": req.Name, "email": req.Email}
	s.render(w, http.StatusOK, "contact.tmpl", p)
}
