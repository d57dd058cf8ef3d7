package console

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acme-console/admin-console/internal/directory"
	"github.com/acme-console/admin-console/internal/observability"
	"github.com/acme-console/admin-console/internal/platform/httpx"
	"github.com/acme-console/admin-console/internal/shared"
	"github.com/acme-console/admin-console/internal/view"
)

// Cookie session keys holding the console state.
const (
	sessionUserKey    = "console_user_id"
	sessionAccountKey = "console_account_id"
)

// Switch kinds reported to the SwitchRecorder.
const (
	SwitchUser    = "user"
	SwitchAccount = "account"
)

// SwitchRecorder counts session switches by kind and outcome.
type SwitchRecorder interface {
	SessionSwitch(kind, outcome string)
}

// Handler serves the console page, the session selectors and the JSON view.
type Handler struct {
	logger    *slog.Logger
	dir       *directory.Directory
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   SwitchRecorder
	validator *validator.Validate
}

// NewHandler builds a Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, dir *directory.Directory, templates *view.Engine, csrf *shared.CSRFManager, metrics SwitchRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		dir:       dir,
		templates: templates,
		csrf:      csrf,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showConsole)
	r.Route("/session", func(r chi.Router) {
		r.Post("/user", h.selectUser)
		r.With(h.requireSuperuser).Post("/account", h.selectAccount)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.sessionJSON)
		r.Get("/accounts", h.accountsJSON)
		r.Get("/users", h.usersJSON)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no such console resource")
		})
	})
}

type userForm struct {
	UserID string `validate:"required,number"`
}

type accountForm struct {
	AccountID string `validate:"omitempty,number"`
}

func (h *Handler) showConsole(w http.ResponseWriter, r *http.Request) {
	s, _ := h.restore(r)
	h.render(w, r, "pages/console.html", BuildPage(h.dir, s), http.StatusOK)
}

func (h *Handler) selectUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := userForm{UserID: strings.TrimSpace(r.PostFormValue("user_id"))}
	id, ok := h.parseID(form, form.UserID)
	if !ok {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	s, sess := h.restore(r)
	s.SelectUser(id)
	h.store(sess, s.State())
	h.recordSwitch(SwitchUser, observability.OutcomeApplied)
	h.logger.Info("current user switched",
		slog.Int64("user_id", id),
		slog.Int64("resolved_user_id", s.CurrentUser().ID),
		slog.Any("active_account", accountAttr(s.ActiveAccountID())),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) selectAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := accountForm{AccountID: strings.TrimSpace(r.PostFormValue("account_id"))}
	ref := NoAccount
	if form.AccountID != "" {
		id, ok := h.parseID(form, form.AccountID)
		if !ok {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}
		ref = SomeAccount(id)
	}

	s, sess := h.restore(r)
	if err := s.SelectActiveAccount(ref); err != nil {
		if !errors.Is(err, ErrAccountNotAvailable) {
			h.logger.Error("select active account", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		h.recordSwitch(SwitchAccount, observability.OutcomeRejected)
		h.logger.Warn("active account rejected",
			slog.Int64("user_id", s.CurrentUser().ID),
			slog.Int64("account_id", ref.ID),
		)
		h.redirectWithFlash(w, r, "/", "error", "That account is not available to the current user")
		return
	}
	h.store(sess, s.State())
	h.recordSwitch(SwitchAccount, observability.OutcomeApplied)
	h.logger.Info("active account switched",
		slog.Int64("user_id", s.CurrentUser().ID),
		slog.Any("active_account", accountAttr(ref)),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// requireSuperuser rejects account switching for non-superusers, who have no
// way to reach it from the page.
func (h *Handler) requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := h.restore(r)
		if !s.CurrentUser().IsSuperuser {
			h.logger.Warn("account switch by non-superuser", slog.Int64("user_id", s.CurrentUser().ID))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sessionJSON(w http.ResponseWriter, r *http.Request) {
	s, _ := h.restore(r)
	httpx.JSON(w, http.StatusOK, BuildSnapshot(h.dir, s))
}

func (h *Handler) accountsJSON(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.dir.Accounts())
}

func (h *Handler) usersJSON(w http.ResponseWriter, r *http.Request) {
	users := h.dir.Users()
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = newUserView(h.dir, u)
	}
	httpx.JSON(w, http.StatusOK, views)
}

// restore rebuilds the console session from the cookie session. Browsers
// without stored state start as the first directory user.
func (h *Handler) restore(r *http.Request) (*Session, *shared.Session) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return NewSession(h.dir), nil
	}
	userID, ok := sess.Int64(sessionUserKey)
	if !ok {
		return NewSession(h.dir), sess
	}
	st := State{UserID: userID}
	if accountID, ok := sess.Int64(sessionAccountKey); ok {
		st.Account = SomeAccount(accountID)
	}
	return Restore(h.dir, st), sess
}

func (h *Handler) store(sess *shared.Session, st State) {
	if sess == nil {
		h.logger.Error("session missing, console state not stored")
		return
	}
	sess.SetInt64(sessionUserKey, st.UserID)
	if st.Account.Valid {
		sess.SetInt64(sessionAccountKey, st.Account.ID)
	} else {
		sess.Delete(sessionAccountKey)
	}
}

func (h *Handler) parseID(form any, raw string) (int64, bool) {
	if err := h.validator.Struct(form); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (h *Handler) recordSwitch(kind, outcome string) {
	if h.metrics != nil {
		h.metrics.SessionSwitch(kind, outcome)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data Page, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Admin Console", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func accountAttr(ref AccountRef) any {
	if !ref.Valid {
		return "none"
	}
	return ref.ID
}
