package httpapi

import (
	"net/http"

	"amicus.org/internal/audit"
	"amicus.org/internal/membership"
	"amicus.org/internal/obs"
)

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var input membership.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.members.Register(r.Context(), input)
	if err != nil {
		obs.CountRegistration("error")
		handleServiceError(w, r, err)
		return
	}
	obs.CountRegistration("ok")

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id":     res.UserID,
		"member_id":   res.MemberID,
		"member_code": res.MemberCode,
	})

	w.Header().Set("Location", "/v1/members/"+res.MemberID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":     res.UserID,
		"member_id":   res.MemberID,
		"member_code": res.MemberCode,
		"status":      membership.MemberPending,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var input membership.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.members.Login(r.Context(), input)
	if err != nil {
		obs.CountLogin("error")
		handleServiceError(w, r, err)
		return
	}
	obs.CountLogin("ok")

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": session.User.ID,
		"role":    string(session.User.Role),
	})

	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var input membership.ChangePasswordInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	input.UserID = actor.UserID

	if err := a.members.ChangePassword(r.Context(), actor, input); err != nil {
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.password.change", map[string]any{
		"user_id": actor.UserID,
	})

	w.WriteHeader(http.StatusNoContent)
}
