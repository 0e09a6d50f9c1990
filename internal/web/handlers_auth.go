package web

import (
	"net/http"

	"github.com/communication-ltd/portal/internal/gateway"
)

func (s *Server) showLogin(w http.ResponseWriter, r *http.Request) {
	// Visitors with a live session skip the login page.
	if sid := s.cookies.Read(r); sid != "" {
		if sess, err := s.sessions.Get(r.Context(), sid); err == nil && sess != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, http.StatusOK, "login.tmpl", s.newPage(r, "Login"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Login")

	if !s.limiter.Allow(r.RemoteAddr) {
		p.Error = "Too many login attempts. Please wait a minute and try again."
		s.render(w, http.StatusTooManyRequests, "login.tmpl", p)
		return
	}

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "login.tmpl", p)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	remember := r.PostFormValue("remember_me") == "on"
	p.Form["username"] = username

	if username == "" || password == "" {
		p.Error = "Username and password are required."
		s.render(w, http.StatusBadRequest, "login.tmpl", p)
		return
	}

	resp, err := s.backend.Login(r.Context(), gateway.LoginRequest{
		UsernameOrEmail: username,
		Password:        password,
		RememberMe:      remember,
	})
	if err != nil {
		status := http.StatusBadGateway
		if ge, ok := gateway.AsError(err); ok && ge.StatusCode != 0 {
			status = ge.StatusCode
		}
		p.Error = failureMessage(err)
		s.render(w, status, "login.tmpl", p)
		return
	}

	sess, err := s.sessions.Create(r.Context(), resp.Token, remember)
	if err != nil {
		s.log.WithError(err).Error("creating session failed")
		s.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	// Load the profile eagerly so the first page already greets the
	// user by name. A failure here is fine, the guard retries later.
	if err := s.sessions.Reconcile(r.Context(), sess); err != nil {
		s.log.WithError(err).Debug("profile fetch after login failed")
	}

	if err := s.cookies.Set(w, sess); err != nil {
		s.log.WithError(err).Error("setting session cookie failed")
		s.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r.Context()); sess != nil {
		s.sessions.Logout(r.Context(), sess)
	}
	s.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) showRegister(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register.tmpl", s.newPage(r, "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Register")

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "register.tmpl", p)
		return
	}
	req := gateway.RegisterRequest{
		FullName:        r.PostFormValue("full_name"),
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		PhoneNumber:     r.PostFormValue("phone_number"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
		Gender:          r.PostFormValue("gender"),
		AcceptTerms:     r.PostFormValue("accept_terms") == "on",
	}
	for key, value := range map[string]string{
		"full_name":    req.FullName,
		"username":     req.Username,
		"email":        req.Email,
		"phone_number": req.PhoneNumber,
		"gender":       req.Gender,
	} {
		p.Form[key] = value
	}

	if req.Password != req.ConfirmPassword {
		p.Error = "Passwords do not match."
		s.render(w, http.StatusBadRequest, "register.tmpl", p)
		return
	}
	if !req.AcceptTerms {
		p.Error = "You must accept the terms of service."
		s.render(w, http.StatusBadRequest, "register.tmpl", p)
		return
	}

	if _, err := s.backend.Register(r.Context(), req); err != nil {
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "register.tmpl", p)
		return
	}

	login := s.newPage(r, "Login")
	login.Notice = "Account created. You can sign in now."
	s.render(w, http.StatusOK, "login.tmpl", login)
}

func (s *Server) showForgotPassword(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "forgot_password.tmpl", s.newPage(r, "Forgot password"))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Forgot password")

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "forgot_password.tmpl", p)
		return
	}
	email := r.PostFormValue("email")
	if email == "" {
		p.Error = "Please enter the email address of your account."
		s.render(w, http.StatusBadRequest, "forgot_password.tmpl", p)
		return
	}

	if _, err := s.backend.RequestPasswordReset(r.Context(), email); err != nil {
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "forgot_password.tmpl", p)
		return
	}
	p.Notice = "If that address belongs to an account, a reset link is on its way."
	s.render(w, http.StatusOK, "forgot_password.tmpl", p)
}

func (s *Server) showResetPassword(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Reset password")
	p.Form["reset_token"] = r.URL.Query().Get("token")
	s.render(w, http.StatusOK, "reset_password.tmpl", p)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Reset password")

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "reset_password.tmpl", p)
		return
	}
	req := gateway.ConfirmResetRequest{
		ResetToken:      r.PostFormValue("reset_token"),
		NewPassword:     r.PostFormValue("new_password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	p.Form["reset_token"] = req.ResetToken

	if req.NewPassword != req.ConfirmPassword {
		p.Error = "Passwords do not match."
		s.render(w, http.StatusBadRequest, "reset_password.tmpl", p)
		return
	}

	if _, err := s.backend.ConfirmPasswordReset(r.Context(), req); err != nil {
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "reset_password.tmpl", p)
		return
	}

	login := s.newPage(r, "Login")
	login.Notice = "Your password has been reset. You can sign in now."
	s.render(w, http.StatusOK, "login.tmpl", login)
}
