package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	log "github.com/sirupsen/logrus"
)

// Visible returns the rows of one table a user may read.
type Visible[T models.Row] func(u models.User, s state.State) []T

// ResourceHandler serves list, get, create, patch and delete for one table.
// Reads come from the local state; writes go through the Mutator, which
// enforces per-role write permissions.
type ResourceHandler[T models.Row] struct {
	Store   *state.Store
	Mutator *services.Mutator
	Visible Visible[T]
}

func NewResourceHandler[T models.Row](store *state.Store, mutator *services.Mutator, visible Visible[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{Store: store, Mutator: mutator, Visible: visible}
}

// GET /{resource}
func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	rows := h.Visible(u, h.Store.Snapshot())
	if rows == nil {
		rows = []T{}
	}
	writeData(w, rows)
}

// GET /{resource}/{id}
func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	for _, row := range h.Visible(u, h.Store.Snapshot()) {
		if row.Key() == id {
			writeData(w, row)
			return
		}
	}
	writeError(w, services.ErrNotFound, services.Result{})
}

// POST /{resource}
func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	var row T
	if err := decode(w, r, &row); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.Mutator.Submit(r.Context(), u, &services.Create[T]{Row: row})
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusCreated, res.Deltas[0].Row, res)
}

// PATCH /{resource}/{id} with a partial camelCase payload.
func (h *ResourceHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, err)
		return
	}
	fields, err := models.PatchFrom[T](body)
	if errors.Is(err, models.ErrUnknownField) {
		log.WithError(err).Warn("Rejected patch payload")
		writeError(w, err, services.Result{})
		return
	}
	if err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.Mutator.Submit(r.Context(), u, &services.Update[T]{ID: id, Fields: fields})
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, res.Deltas[0].Row, res)
}

// DELETE /{resource}/{id}
func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err, services.Result{})
		return
	}

	res, err := h.Mutator.Submit(r.Context(), u, &services.Delete[T]{ID: id})
	if err != nil {
		writeError(w, err, res)
		return
	}
	writeResult(w, http.StatusOK, nil, res)
}
