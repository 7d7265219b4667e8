package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"sismobi/internal/core"
	applog "sismobi/internal/log"
	"sismobi/internal/services"
	"sismobi/internal/storage"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.clock.Now().Format(time.RFC3339),
		"uptime":    s.clock.Now().Sub(s.started).String(),
	})
}

// handleReady checks the store is reachable
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]any{}
	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}
	checks["rate_limiter"] = s.rateLimiter.GetMetrics()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.clock.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleList returns a collection as a JSON array, filtered and paged by the
// query string. X-Total-Count carries the number of matches before paging.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	if !storage.ValidCollection(collection) {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := s.store.List(r.Context(), collection)
	if err != nil {
		s.writeStoreError(w, r, applog.OpList, err)
		return
	}
	out, total := q.apply(collection, docs)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	if !storage.ValidCollection(collection) {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	body, err := s.store.Get(r.Context(), collection, r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCreate stores a record, replacing any record with the same id.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	decode, ok := s.decoders[collection]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	id, body, ok := s.decodeAndStore(w, r, collection, decode, data, applog.OpCreate)
	if !ok {
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRecordCreated(r.Context(), collection, id)
	w.Header().Set("Location", "/api/v1/"+collection+"/"+id)
	writeJSON(w, http.StatusCreated, json.RawMessage(body))
}

// handleUpdate merges the body's fields over the stored record and stores
// the result. The path id wins over any id in the body.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	collection, id := r.PathValue("collection"), r.PathValue("id")
	decode, ok := s.decoders[collection]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	stored, err := s.store.Get(r.Context(), collection, id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpUpdate, err)
		return
	}
	merged, err := mergeRecord(stored, data, id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, body, ok := s.decodeAndStore(w, r, collection, decode, merged, applog.OpUpdate)
	if !ok {
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRecordUpdated(r.Context(), collection, id)
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

// decodeAndStore validates data, checks its references and stores it. On
// failure it writes the error response and returns false.
func (s *Server) decodeAndStore(w http.ResponseWriter, r *http.Request, collection string, decode decodeFunc, data []byte, op string) (string, []byte, bool) {
	id, value, err := decode(data)
	switch {
	case errors.Is(err, errMalformedBody):
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, "invalid record: "+err.Error())
		return "", nil, false
	}

	if err := s.checkReferences(r.Context(), value); err != nil {
		if errors.Is(err, errMissingReference) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			s.writeStoreError(w, r, op, err)
		}
		return "", nil, false
	}

	body, err := json.Marshal(value)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid record: "+err.Error())
		return "", nil, false
	}
	if err := s.store.Put(r.Context(), collection, storage.Document{ID: id, Body: body}); err != nil {
		s.writeStoreError(w, r, op, err)
		return "", nil, false
	}
	return id, body, true
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection, id := r.PathValue("collection"), r.PathValue("id")
	if !storage.ValidCollection(collection) {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	if err := s.store.Delete(r.Context(), collection, id); err != nil {
		s.writeStoreError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Record deleted",
		applog.NewFields().WithRecord(collection, id).WithOperation(applog.OpDelete).ToSlice()...)
	w.WriteHeader(http.StatusNoContent)
}

// handleResolveAlert marks a stored alert resolved. The reconciler never
// re-adds an id that is already stored, so the alert stays resolved.
func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := s.store.Get(r.Context(), storage.Alerts, id)
	if err != nil {
		s.writeStoreError(w, r, applog.OpResolve, err)
		return
	}

	var alert core.Alert
	if err := json.Unmarshal(body, &alert); err != nil {
		s.writeStoreError(w, r, applog.OpResolve, err)
		return
	}
	alert.Resolved = true
	if err := storage.PutAs(r.Context(), s.store, storage.Alerts, func(a core.Alert) string { return id }, alert); err != nil {
		s.writeStoreError(w, r, applog.OpResolve, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Alert resolved",
		applog.NewFields().WithAlert(id, string(alert.Type), alert.PropertyID).WithOperation(applog.OpResolve).ToSlice()...)
	writeJSON(w, http.StatusOK, alert)
}

// handleBillGroupSummary totals the energy or water bills of one group,
// optionally limited to a year.
func (s *Server) handleBillGroupSummary(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	if collection != storage.EnergyBills && collection != storage.WaterBills {
		writeError(w, http.StatusNotFound, "unknown bill collection")
		return
	}
	year, err := intParam(r.URL.Query(), "year", 2000, 3000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bills, _, err := storage.ListAs[core.UtilityBill](r.Context(), s.store, collection)
	if err != nil {
		s.writeStoreError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, services.SummarizeBillGroup(bills, r.PathValue("groupId"), year))
}
