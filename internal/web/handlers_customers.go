package web

import (
	"net/http"
	"strconv"

	"github.com/communication-ltd/portal/internal/gateway"
)

func (s *Server) showAddCustomer(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "New customer")
	if plans, err := s.backend.DataPlans(r.Context()); err == nil {
		p.Data = plans
	}
	s.render(w, http.StatusOK, "customer_new.tmpl", p)
}

func (s *Server) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "New customer")
	sess := currentSession(r.Context())

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "customer_new.tmpl", p)
		return
	}

	packageID, err := strconv.Atoi(r.PostFormValue("package_id"))
	if err != nil {
		p.Error = "Please choose a data plan."
		s.render(w, http.StatusBadRequest, "customer_new.tmpl", p)
		return
	}
	req := gateway.NewCustomer{
		FirstName:    r.PostFormValue("first_name"),
		LastName:     r.PostFormValue("last_name"),
		PhoneNumber:  r.PostFormValue("phone_number"),
		EmailAddress: r.PostFormValue("email_address"),
		Address:      r.PostFormValue("address"),
		PackageID:    packageID,
		Gender:       r.PostFormValue("gender"),
	}
	// The owning account is the logged-in user, not a form field.
	if id, ok := sess.Store.Current(); ok {
		req.UserID = id.ID
	}
	for key, value := range map[string]string{
		"first_name":    req.FirstName,
		"last_name":     req.LastName,
		"phone_number":  req.PhoneNumber,
		"email_address": req.EmailAddress,
		"address":       req.Address,
		"gender":        req.Gender,
	} {
		p.Form[key] = value
	}

	created, err := s.backend.AddCustomer(gateway.WithToken(r.Context(), sess.Token), req)
	if err != nil {
		if s.expireSession(w, r, err) {
			return
		}
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "customer_new.tmpl", p)
		return
	}

	p.Notice = "Customer " + created.FirstName + " " + created.LastName + " has been added."
	p.Form = map[string]string{}
	s.render(w, http.StatusOK, "customer_new.tmpl", p)
}

func (s *Server) showSearchCustomers(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "customer_search.tmpl", s.newPage(r, "Find customers"))
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Find customers")
	sess := currentSession(r.Context())

	if err := r.ParseForm(); err != nil {
		p.Error = "The submitted form could not be read."
		s.render(w, http.StatusBadRequest, "customer_search.tmpl", p)
		return
	}
	query := r.PostFormValue("query")
	p.Form["query"] = query

	resp, err := s.backend.SearchCustomers(gateway.WithToken(r.Context(), sess.Token), query)
	if err != nil {
		if s.expireSession(w, r, err) {
			return
		}
		p.Error = failureMessage(err)
		s.render(w, http.StatusBadRequest, "customer_search.tmpl", p)
		return
	}

	if len(resp.Customers) == 0 {
		p.Notice = "No customers matched your search."
	}
	p.Data = resp.Customers
	s.render(w, http.StatusOK, "customer_search.tmpl", p)
}
