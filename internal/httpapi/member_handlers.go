package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"amicus.org/internal/audit"
	"amicus.org/internal/membership"
)

type setStatusRequest struct {
	Status string `json:"status"`
}

type createAssociationRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (a *API) handleMembersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listMembers(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/members/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "stats" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.memberStats(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/approve"); ok && id != "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.approveMember(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/status"); ok && id != "" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.setMemberStatus(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getMember(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := membership.MemberFilter{
		AssociationID: strings.TrimSpace(q.Get("association_id")),
		Status:        membership.MemberStatus(strings.TrimSpace(q.Get("status"))),
		Search:        strings.TrimSpace(q.Get("q")),
	}
	var err error
	if filter.Page, err = parseQueryInt(q.Get("page"), 1); err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	if filter.Limit, err = parseQueryInt(q.Get("limit"), 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	page, err := a.members.ListMembers(r.Context(), actor, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) getMember(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	member, err := a.members.GetMember(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (a *API) approveMember(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	member, err := a.members.ApproveMember(r.Context(), actor, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "member.approve", map[string]any{
		"member_id":      member.ID,
		"association_id": member.AssociationID,
	})

	writeJSON(w, http.StatusOK, member)
}

func (a *API) setMemberStatus(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	member, err := a.members.SetMemberStatus(r.Context(), actor, id, membership.MemberStatus(req.Status))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "member.set_status", map[string]any{
		"member_id":      member.ID,
		"association_id": member.AssociationID,
		"status":         string(member.Status),
	})

	writeJSON(w, http.StatusOK, member)
}

func (a *API) memberStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	assocID := strings.TrimSpace(r.URL.Query().Get("association_id"))
	stats, err := a.members.MemberStats(r.Context(), actor, assocID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleAssociations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		assocs, err := a.members.ListAssociations(r.Context(), actor)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": assocs})
	case http.MethodPost:
		var req createAssociationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		assoc, err := a.members.CreateAssociation(r.Context(), actor, req.Name, req.Code)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		_ = audit.LogEvent(r.Context(), "association.create", map[string]any{
			"association_id": assoc.ID,
			"code":           assoc.Code,
		})

		w.Header().Set("Location", "/v1/associations/"+assoc.ID)
		writeJSON(w, http.StatusCreated, assoc)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func parseQueryInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return val, nil
}
