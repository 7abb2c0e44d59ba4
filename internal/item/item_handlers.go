package item

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"contentflow/internal/common"
	"contentflow/internal/ordering"
)

type Handler struct {
	svc ItemService
}

func NewHandler(svc ItemService) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Scope    string `json:"scope" validate:"required,scope"`
	MediaRef string `json:"mediaRef" validate:"required,max=64"`
	Caption  string `json:"caption" validate:"max=2200"`
	Kind     string `json:"kind" validate:"required,kind"`
}

// patchRequest has no status field: a client-sent status is decoded into nothing.
type patchRequest struct {
	Caption            *string    `json:"caption"`
	ScheduledDate      *time.Time `json:"scheduledDate"`
	ClearScheduledDate bool       `json:"clearScheduledDate"`
	Transition         string     `json:"transition" validate:"transition"`
	RejectionReason    string     `json:"rejectionReason" validate:"max=500"`
	ExpectedUpdatedAt  *int64     `json:"expectedUpdatedAt"`
}

type reorderRequest struct {
	Scope string              `json:"scope" validate:"required,scope"`
	Items []ordering.Position `json:"items" validate:"required,min=1,dive"`
}

type deleteRequest struct {
	CascadeToMediaStore bool `json:"cascadeToMediaStore"`
}

func actorOf(r *http.Request) (common.Actor, bool) {
	return common.ActorFromContext(r.Context())
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.NewValidationError("", "invalid JSON body: %v", err)
	}
	return common.ValidateStruct(v)
}

func (h *Handler) withActor(next func(w http.ResponseWriter, r *http.Request, actor common.Actor)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorOf(r)
		if !ok {
			common.WriteErrorBody(w, http.StatusUnauthorized, "unauthenticated", "authorization required")
			return
		}
		next(w, r, actor)
	}
}

// List serves GET /items?scope=&lastCheckTimestamp=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	q := r.URL.Query()
	var since int64
	if raw := q.Get("lastCheckTimestamp"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			common.WriteError(w, common.NewValidationError("lastCheckTimestamp", "must be epoch milliseconds"))
			return
		}
		since = v
	}

	resp, err := h.svc.Poll(r.Context(), actor, q.Get("scope"), since)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	it, err := h.svc.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, it)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}

	it, err := h.svc.Create(r.Context(), actor, CreateInput{
		Scope:    req.Scope,
		MediaRef: req.MediaRef,
		Caption:  req.Caption,
		Kind:     common.Kind(req.Kind),
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, it)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	var req patchRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}

	it, err := h.svc.Patch(r.Context(), actor, mux.Vars(r)["id"], PatchInput{
		Caption:            req.Caption,
		ScheduledDate:      req.ScheduledDate,
		ClearScheduledDate: req.ClearScheduledDate,
		Transition:         common.Transition(req.Transition),
		RejectionReason:    req.RejectionReason,
		ExpectedUpdatedAt:  req.ExpectedUpdatedAt,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, it)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	var req reorderRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}

	res, err := h.svc.Reorder(r.Context(), actor, req.Scope, req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, res)
}

// Delete accepts {"cascadeToMediaStore":true} or ?cascade=true; an empty body is a soft detach.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, actor common.Actor) {
	var req deleteRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			common.WriteError(w, common.NewValidationError("", "invalid JSON body: %v", err))
			return
		}
	}
	cascade := req.CascadeToMediaStore
	if raw := r.URL.Query().Get("cascade"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			common.WriteError(w, common.NewValidationError("cascade", "must be true or false"))
			return
		}
		cascade = cascade || v
	}

	res, err := h.svc.Delete(r.Context(), actor, mux.Vars(r)["id"], cascade)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, res)
}
