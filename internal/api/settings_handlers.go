package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lamconf/internal/audit"
	"lamconf/internal/auth"
	"lamconf/internal/domain"
	"lamconf/internal/i18n"
	"lamconf/internal/settings"
	"lamconf/internal/storage"
)

// outcomeSaved labels successful updates in metrics.
const outcomeSaved = "saved"

// updateResponse is the JSON body of a successful POST /api/v1/settings.
type updateResponse struct {
	PasswordChanged bool     `json:"password_changed"`
	Summary         string   `json:"summary"`
	Messages        []string `json:"messages"`
	MessageKeys     []string `json:"message_keys"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/config/login", http.StatusSeeOther)
}

// handleLogin renders the password prompt.
// GET /config/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.views.RenderLogin(w, http.StatusOK, s.translator(r), "")
}

// handleEdit checks the admin password and renders the settings form.
// POST /config/edit
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tr := s.translator(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.logFailure(ctx, http.StatusBadRequest, "invalid form", err.Error())
		s.views.RenderError(w, http.StatusBadRequest, tr, tr.Translate("request.invalid"))
		return
	}

	doc, err := s.loadDocument(ctx)
	if err != nil {
		s.logFailure(ctx, http.StatusInternalServerError, "load settings", err.Error())
		s.views.RenderError(w, http.StatusInternalServerError, tr, tr.Translate(settings.KeySaveFailed))
		return
	}

	password := r.PostFormValue("passwd")
	if !doc.VerifyPassword(password) {
		s.recordLogin(ctx, r, http.StatusUnauthorized)
		s.logFailure(ctx, http.StatusUnauthorized, "wrong configuration password", "")
		s.views.RenderLogin(w, http.StatusUnauthorized, tr, tr.Translate(settings.KeyPasswordInvalid))
		return
	}
	s.recordLogin(ctx, r, http.StatusOK)
	s.views.RenderForm(w, tr, password, doc.Settings())
}

// handleSave applies a submitted settings form.
// POST /config/save
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tr := s.translator(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.logFailure(ctx, http.StatusBadRequest, "invalid form", err.Error())
		s.views.RenderError(w, http.StatusBadRequest, tr, tr.Translate("request.invalid"))
		return
	}

	out, status, err := s.update(ctx, r, submissionFromForm(r))
	if err != nil {
		key := messageKey(err)
		s.logFailure(ctx, status, err.Error(), "")
		if status == http.StatusUnauthorized {
			s.views.RenderLogin(w, status, tr, tr.Translate(key))
			return
		}
		s.views.RenderError(w, status, tr, tr.Translate(key))
		return
	}
	s.views.RenderResult(w, tr, translateAll(tr, out.Messages), out.Summary)
}

// handleAPIUpdate is the JSON variant of handleSave.
// POST /api/v1/settings
func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tr := s.translator(r)

	var sub settings.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&sub); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, apiError{
			Error:  tr.Translate("request.invalid"),
			Detail: err.Error(),
			Key:    "request.invalid",
		})
		return
	}

	out, status, err := s.update(ctx, r, sub)
	if err != nil {
		e := apiError{Error: tr.Translate(messageKey(err)), Key: messageKey(err)}
		var ve *settings.ValidationError
		if errors.As(err, &ve) {
			e.Field = string(ve.Field)
		}
		if status >= 500 {
			e.Detail = err.Error()
		}
		s.writeErr(ctx, w, status, e)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{
		PasswordChanged: out.PasswordChanged,
		Summary:         out.Summary,
		Messages:        translateAll(tr, out.Messages),
		MessageKeys:     out.Messages,
	})
}

// update loads the stored settings, runs the submission against them and
// records the attempt. The returned status is the HTTP status for the result.
func (s *Server) update(ctx context.Context, r *http.Request, sub settings.Submission) (*settings.Outcome, int, error) {
	doc, err := s.loadDocument(ctx)
	if err != nil {
		perr := &settings.PersistenceError{Cause: err}
		s.recordUpdate(ctx, r, nil, nil, nil, perr, http.StatusInternalServerError)
		return nil, http.StatusInternalServerError, perr
	}

	before := doc.Settings()
	out, err := settings.HandleUpdate(ctx, sub, doc)
	status := statusForUpdate(err)
	after := doc.Settings()
	s.recordUpdate(ctx, r, &before, &after, out, err, status)
	if err == nil {
		s.logger.InfoContext(ctx, "settings saved",
			"password_changed", out.PasswordChanged,
			"host", after.Host,
			"port", after.Port,
		)
	}
	return out, status, err
}

func (s *Server) loadDocument(ctx context.Context) (*storage.Document, error) {
	return storage.LoadDocument(ctx, s.backend, storage.WithHashCost(s.hashCost))
}

// statusForUpdate maps a HandleUpdate error to an HTTP status.
func statusForUpdate(err error) int {
	var ve *settings.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, settings.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.As(err, &ve), errors.Is(err, settings.ErrPasswordMismatch), errors.Is(err, storage.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageKey extends settings.MessageKey with the store's refusal of the
// new password, which would otherwise read as a save failure.
func messageKey(err error) string {
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return settings.KeyPasswordTooLong
	}
	return settings.MessageKey(err)
}

// recordUpdate writes the audit event and metrics for one update attempt.
// Field changes are recorded only for saved updates.
func (s *Server) recordUpdate(ctx context.Context, r *http.Request, before, after *domain.Settings, out *settings.Outcome, err error, status int) {
	event := s.newAuditEvent(ctx, r, audit.ActionUpdate, status)
	outcome := outcomeSaved
	if err != nil {
		outcome = messageKey(err)
		event.Detail = outcome
	} else if before != nil && after != nil {
		event.Changes = audit.DiffSettings(*before, *after, out.PasswordChanged)
	}
	if before == nil || errors.Is(err, settings.ErrAuthenticationFailed) {
		event.ActorType = audit.ActorTypeAnonymous
	}
	s.logAudit(ctx, event)
	s.metrics.RecordSettingsUpdate(outcome)
}

func (s *Server) recordLogin(ctx context.Context, r *http.Request, status int) {
	event := s.newAuditEvent(ctx, r, audit.ActionLogin, status)
	if status != http.StatusOK {
		event.ActorType = audit.ActorTypeAnonymous
		event.Detail = settings.KeyPasswordInvalid
	}
	s.logAudit(ctx, event)
}

func (s *Server) newAuditEvent(ctx context.Context, r *http.Request, action string, status int) *audit.AuditEvent {
	ip := clientKeyWithProxies(r, s.proxies)
	return &audit.AuditEvent{
		Actor:        ip,
		ActorType:    audit.ActorTypeAdmin,
		Action:       action,
		ResourceType: audit.ResourceSettings,
		ResourceID:   audit.SettingsResourceID,
		RequestID:    RequestIDFromContext(ctx),
		IPAddress:    ip,
		StatusCode:   status,
	}
}

func (s *Server) logAudit(ctx context.Context, event *audit.AuditEvent) {
	if err := s.auditLogger.Log(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit log failed", "error", err, "action", event.Action)
	}
}

// submissionFromForm reads the classic form field names.
func submissionFromForm(r *http.Request) settings.Submission {
	return settings.Submission{
		SuppliedPassword:   r.PostFormValue("passwd"),
		Host:               r.PostFormValue("host"),
		Port:               r.PostFormValue("port"),
		AdminString:        r.PostFormValue("admins"),
		SSLFlag:            r.PostFormValue("ssl"),
		UserSuffix:         r.PostFormValue("suffusers"),
		GroupSuffix:        r.PostFormValue("suffgroups"),
		HostSuffix:         r.PostFormValue("suffhosts"),
		NewPassword:        r.PostFormValue("pass1"),
		NewPasswordConfirm: r.PostFormValue("pass2"),
	}
}

func translateAll(tr i18n.Translator, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = tr.Translate(k)
	}
	return out
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
