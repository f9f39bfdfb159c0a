package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stevemurr/franchise-admin/model"
	"github.com/stevemurr/franchise-admin/schema"
	"github.com/stevemurr/franchise-admin/store"
)

// resource is the CRUD surface of one entity kind, erased to any so every
// kind shares the same handlers.
type resource struct {
	kind   model.Kind
	list   func(ctx context.Context, s store.Store) (any, error)
	get    func(ctx context.Context, s store.Store, id int) (any, bool, error)
	create func(ctx context.Context, s store.Store, body []byte) (any, error)
	update func(ctx context.Context, s store.Store, id int, p model.Patch) (any, bool, error)
	delete func(ctx context.Context, s store.Store, id int) (bool, error)
}

func crud[T any](kind model.Kind, repo func(store.Store) store.Repository[T]) resource {
	return resource{
		kind: kind,
		list: func(ctx context.Context, s store.Store) (any, error) {
			return repo(s).List(ctx)
		},
		get: func(ctx context.Context, s store.Store, id int) (any, bool, error) {
			return found(repo(s).Get(ctx, id))
		},
		create: func(ctx context.Context, s store.Store, body []byte) (any, error) {
			var v T
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, &invalidError{err}
			}
			return repo(s).Create(ctx, v)
		},
		update: func(ctx context.Context, s store.Store, id int, p model.Patch) (any, bool, error) {
			return found(repo(s).Update(ctx, id, p))
		},
		delete: func(ctx context.Context, s store.Store, id int) (bool, error) {
			return repo(s).Delete(ctx, id)
		},
	}
}

func found[T any](v *T, err error) (any, bool, error) {
	if err != nil || v == nil {
		return nil, false, err
	}
	return v, true, nil
}

// invalidError is a payload that passed the schema but does not fit the
// record type.
type invalidError struct{ err error }

func (e *invalidError) Error() string { return e.err.Error() }

func (h *Handler) resources() []resource {
	users := crud(model.KindUser, func(s store.Store) store.Repository[model.User] { return s.Users() })

	// Orders read back joined with their user and product.
	orders := resource{
		kind: model.KindOrder,
		list: func(ctx context.Context, s store.Store) (any, error) {
			return s.Orders().List(ctx)
		},
		get: func(ctx context.Context, s store.Store, id int) (any, bool, error) {
			return found(s.Orders().Get(ctx, id))
		},
		create: func(ctx context.Context, s store.Store, body []byte) (any, error) {
			var o model.Order
			if err := json.Unmarshal(body, &o); err != nil {
				return nil, &invalidError{err}
			}
			return s.Orders().Create(ctx, o)
		},
		update: func(ctx context.Context, s store.Store, id int, p model.Patch) (any, bool, error) {
			return found(s.Orders().Update(ctx, id, p))
		},
		delete: func(ctx context.Context, s store.Store, id int) (bool, error) {
			return s.Orders().Delete(ctx, id)
		},
	}

	return []resource{
		users,
		crud(model.KindProduct, store.Store.Products),
		orders,
		crud(model.KindLocation, store.Store.Locations),
		crud(model.KindCompany, store.Store.Companies),
		crud(model.KindStore, store.Store.Stores),
		crud(model.KindStoreManager, store.Store.StoreManagers),
		crud(model.KindMenu, func(s store.Store) store.Repository[model.Menu] { return s.Menus() }),
		crud(model.KindTransaction, store.Store.Transactions),
		crud(model.KindWalletTopup, store.Store.WalletTopups),
	}
}

func (h *Handler) register(api *mux.Router, res resource) {
	base := "/" + string(res.kind)
	api.HandleFunc(base, h.listHandler(res)).Methods(http.MethodGet)
	api.HandleFunc(base, h.createHandler(res)).Methods(http.MethodPost)
	api.HandleFunc(base+"/{id}", h.getHandler(res)).Methods(http.MethodGet)
	api.HandleFunc(base+"/{id}", h.updateHandler(res)).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc(base+"/{id}", h.deleteHandler(res)).Methods(http.MethodDelete)
}

func (h *Handler) listHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.store(w, r)
		if !ok {
			return
		}
		items, err := res.list(r.Context(), s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (h *Handler) getHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s, ok := h.store(w, r)
		if !ok {
			return
		}
		item, exists, err := res.get(r.Context(), s, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, notFound(res.kind, id))
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *Handler) createHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := readJSON(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := schema.ValidateInsert(res.kind, doc); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "schema validation failed: "+err.Error())
			return
		}
		// Identity and timestamps are assigned by the store.
		delete(doc, "id")
		delete(doc, "createdAt")
		delete(doc, "updatedAt")
		body, err := json.Marshal(doc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, ok := h.store(w, r)
		if !ok {
			return
		}
		item, err := res.create(r.Context(), s, body)
		if err != nil {
			if inv, ok := err.(*invalidError); ok {
				writeError(w, http.StatusUnprocessableEntity, "schema validation failed: "+inv.Error())
				return
			}
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func (h *Handler) updateHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := readJSON(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := schema.ValidatePatch(res.kind, doc); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "schema validation failed: "+err.Error())
			return
		}

		s, ok := h.store(w, r)
		if !ok {
			return
		}
		item, exists, err := res.update(r.Context(), s, id, model.Patch(doc))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !exists {
			writeError(w, http.StatusNotFound, notFound(res.kind, id))
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (h *Handler) deleteHandler(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s, ok := h.store(w, r)
		if !ok {
			return
		}
		existed, err := res.delete(r.Context(), s, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !existed {
			writeError(w, http.StatusNotFound, notFound(res.kind, id))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
	}
}

func notFound(kind model.Kind, id int) string {
	return fmt.Sprintf("%s %d not found", kind, id)
}
