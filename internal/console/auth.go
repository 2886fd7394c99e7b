package console

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/appetiteclub/posconsole/internal/backend"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

// ShowSignIn displays the sign-in page
func (h *Handler) ShowSignIn(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.ShowSignIn")
	defer finish()

	data := map[string]interface{}{
		"Title":    "Sign In",
		"Template": "signin",
		"HideNav":  true,
	}
	if r.URL.Query().Get("expired") == "1" {
		data["Error"] = "Your session has expired. Please sign in again."
	}
	if r.URL.Query().Get("registered") == "1" {
		data["Success"] = "Sign up successful. Please sign in."
	}

	h.renderPage(w, r, http.StatusOK, "signin.html", data)
}

// HandleSignIn exchanges the form credentials for a backend token and starts
// a console session.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.HandleSignIn")
	defer finish()
	log := h.log(r)

	renderError := func(status int, username, message string) {
		data := map[string]interface{}{
			"Title":    "Sign In",
			"Template": "signin",
			"HideNav":  true,
			"Username": username,
			"Error":    message,
		}
		h.renderPage(w, r, status, "signin.html", data)
	}

	if err := r.ParseForm(); err != nil {
		log.Debug("failed to parse form", "error", err)
		renderError(http.StatusBadRequest, "", "Failed to parse form. Please try again.")
		return
	}

	creds := backend.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}

	bs, err := h.client.Login(r.Context(), creds)
	switch {
	case errors.Is(err, backend.ErrMissingCredentials):
		renderError(http.StatusUnprocessableEntity, creds.Username, "Please enter username and password.")
		return
	case errors.Is(err, backend.ErrUnauthorized):
		log.Debug("sign in rejected", "username", creds.Username)
		renderError(http.StatusUnauthorized, creds.Username, "Invalid username or password.")
		return
	case err != nil:
		log.Error("sign in failed", "error", err)
		renderError(http.StatusBadGateway, creds.Username, userMessage(err, "Invalid username or password."))
		return
	}

	if err := h.startSession(w, r, bs); err != nil {
		log.Error("failed to save session", "error", err)
		renderError(http.StatusInternalServerError, creds.Username, "Session error. Please try again.")
		return
	}

	aqm.RedirectOrHeader(w, r, "/")
}

// ShowSignUp displays the admin registration page.
func (h *Handler) ShowSignUp(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.ShowSignUp")
	defer finish()

	data := map[string]interface{}{
		"Title":    "Sign Up",
		"Template": "signup",
		"HideNav":  true,
	}

	h.renderPage(w, r, http.StatusOK, "signup.html", data)
}

// HandleSignUp registers an admin and signs them in. When the automatic
// sign-in fails the admin is sent to the sign-in page.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.HandleSignUp")
	defer finish()
	log := h.log(r)

	renderError := func(status int, username, message string) {
		data := map[string]interface{}{
			"Title":    "Sign Up",
			"Template": "signup",
			"HideNav":  true,
			"Username": username,
			"Error":    message,
		}
		h.renderPage(w, r, status, "signup.html", data)
	}

	if err := r.ParseForm(); err != nil {
		renderError(http.StatusBadRequest, "", "Failed to parse form. Please try again.")
		return
	}

	creds := backend.Credentials{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}

	if err := h.client.Register(r.Context(), creds); err != nil {
		if errors.Is(err, backend.ErrMissingCredentials) {
			renderError(http.StatusUnprocessableEntity, creds.Username, "Please enter username and password.")
			return
		}
		log.Info("sign up failed", "username", creds.Username, "error", err)
		renderError(http.StatusUnprocessableEntity, creds.Username, userMessage(err, "Sign up failed. Please try again."))
		return
	}

	bs, err := h.client.Login(r.Context(), creds)
	if err != nil {
		log.Info("automatic sign in after sign up failed", "username", creds.Username, "error", err)
		aqm.RedirectOrHeader(w, r, "/signin?registered=1")
		return
	}

	if err := h.startSession(w, r, bs); err != nil {
		log.Error("failed to save session", "error", err)
		aqm.RedirectOrHeader(w, r, "/signin?registered=1")
		return
	}

	aqm.RedirectOrHeader(w, r, "/")
}

// HandleSignOut ends the console session.
func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.http.Start(w, r, "Handler.HandleSignOut")
	defer finish()

	if cookie, err := r.Cookie(h.settings.SessionName); err == nil && cookie.Value != "" {
		admin := ""
		if session, err := h.sessions.Get(r.Context(), cookie.Value); err == nil {
			admin = session.Admin.Username
		}
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log(r).Error("failed to delete session", "error", err)
		}
		h.resumed.Delete(cookie.Value)
		h.audit.LogSignOut(r.Context(), admin)
	}

	h.clearCookie(w)
	aqm.RedirectOrHeader(w, r, "/signin")
}

// SessionMiddleware validates the console session for protected routes. A
// stored session not yet verified by this process is checked once against
// the backend; sessions that fail are removed.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.settings.SessionName)
		if err != nil || cookie.Value == "" {
			aqm.RedirectOrHeader(w, r, "/signin")
			return
		}

		session, err := h.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				h.log(r).Error("failed to load session", "error", err)
			}
			h.clearCookie(w)
			aqm.RedirectOrHeader(w, r, "/signin")
			return
		}

		bs, err := h.resume(r.Context(), session)
		if err != nil {
			h.log(r).Info("stored session failed verification", "admin", session.Admin.Username, "error", err)
			h.revoke(r, session, err)
			h.clearCookie(w)
			aqm.RedirectOrHeader(w, r, "/signin?expired=1")
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session, bs)))
	})
}

// resume binds session to a backend session, verifying the token the first
// time this process sees the session.
func (h *Handler) resume(ctx context.Context, session *Session) (*backend.Session, error) {
	if _, ok := h.resumed.Load(session.ID); ok {
		return h.client.NewSession(session.Token, session.Admin), nil
	}

	bs, err := h.client.Resume(ctx, session.Token)
	if err != nil {
		return nil, err
	}

	h.resumed.Store(session.ID, struct{}{})
	return bs, nil
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, bs *backend.Session) error {
	now := h.now()
	session := &Session{
		ID:        uuid.NewString(),
		Token:     bs.Token(),
		Admin:     bs.Admin(),
		CreatedAt: now,
		ExpiresAt: now.Add(h.settings.SessionTTL),
	}

	if err := h.sessions.Save(r.Context(), session); err != nil {
		return err
	}
	h.resumed.Store(session.ID, struct{}{})

	http.SetCookie(w, &http.Cookie{
		Name:     h.settings.SessionName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.settings.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.settings.SessionTTL.Seconds()),
	})

	h.audit.LogSignIn(r.Context(), session.Admin.Username)
	return nil
}

// revoke deletes a session whose token the backend no longer accepts.
func (h *Handler) revoke(r *http.Request, session *Session, reason error) {
	if err := h.sessions.Delete(r.Context(), session.ID); err != nil {
		h.log(r).Error("failed to delete session", "error", err)
	}
	h.resumed.Delete(session.ID)
	h.audit.LogSessionRevoked(r.Context(), session.Admin.Username, reason)
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.settings.SessionName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
