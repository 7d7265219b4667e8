package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sismobi/internal/core"
	applog "sismobi/internal/log"
	"sismobi/internal/storage"
)

var (
	errMalformedBody    = errors.New("malformed JSON body")
	errMissingReference = errors.New("referenced record not found")
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: w.Header().Get(applog.RequestIDHeader)})
}

// writeStoreError maps store errors to status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, "unknown collection")
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Store operation failed", err, op,
			applog.NewFields().WithRecord(r.PathValue("collection"), r.PathValue("id")))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type entity interface {
	Validate() error
}

// decodeFunc decodes and validates a request body, returning the record id
// and the value to store.
type decodeFunc func(data []byte) (string, any, error)

// decodeEntity unmarshals T, lets prepare fill defaults, assigns a UUID when
// the id is blank and validates the result.
func decodeEntity[T entity](data []byte, prepare func(*T) *string) (string, any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return "", nil, errMalformedBody
	}
	id := prepare(&v)
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
	if err := v.Validate(); err != nil {
		return "", nil, err
	}
	return *id, v, nil
}

// mergeRecord overlays the top-level fields of patch on stored and pins the
// id. A stored body that is not an object is replaced entirely.
func mergeRecord(stored, patch []byte, id string) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil || fields == nil {
		return nil, errMalformedBody
	}
	var base map[string]json.RawMessage
	if err := json.Unmarshal(stored, &base); err != nil || base == nil {
		base = make(map[string]json.RawMessage, len(fields)+1)
	}
	for k, v := range fields {
		base[k] = v
	}
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	base["id"] = rawID
	return json.Marshal(base)
}

// checkReferences verifies that the property and tenant a document points
// to exist. Other records are not checked.
func (s *Server) checkReferences(ctx context.Context, value any) error {
	doc, ok := value.(core.Document)
	if !ok {
		return nil
	}
	refs := []struct{ collection, id string }{
		{storage.Properties, doc.PropertyID},
		{storage.Tenants, doc.TenantID},
	}
	for _, ref := range refs {
		if ref.id == "" {
			continue
		}
		if _, err := s.store.Get(ctx, ref.collection, ref.id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: %s %s", errMissingReference, ref.collection, ref.id)
			}
			return err
		}
	}
	return nil
}

func (s *Server) newDecoders() map[string]decodeFunc {
	stamp := func(d *core.Date) {
		if !d.Valid() {
			*d = core.DateOf(s.clock.Now())
		}
	}
	bill := func(kind core.BillKind) decodeFunc {
		return func(data []byte) (string, any, error) {
			return decodeEntity(data, func(b *core.UtilityBill) *string {
				b.Kind = kind
				stamp(&b.CreatedAt)
				b.UpdatedAt = core.DateOf(s.clock.Now())
				return &b.ID
			})
		}
	}

	return map[string]decodeFunc{
		storage.Properties: func(data []byte) (string, any, error) {
			return decodeEntity(data, func(p *core.Property) *string {
				stamp(&p.CreatedAt)
				return &p.ID
			})
		},
		storage.Tenants: func(data []byte) (string, any, error) {
			return decodeEntity(data, func(t *core.Tenant) *string { return &t.ID })
		},
		storage.Transactions: func(data []byte) (string, any, error) {
			return decodeEntity(data, func(t *core.Transaction) *string { return &t.ID })
		},
		storage.Alerts: func(data []byte) (string, any, error) {
			return decodeEntity(data, func(a *core.Alert) *string {
				stamp(&a.CreatedAt)
				return &a.ID
			})
		},
		storage.EnergyBills: bill(core.EnergyBillKind),
		storage.WaterBills:  bill(core.WaterBillKind),
		storage.Documents: func(data []byte) (string, any, error) {
			return decodeEntity(data, func(d *core.Document) *string {
				stamp(&d.CreatedAt)
				d.UpdatedAt = core.DateOf(s.clock.Now())
				return &d.ID
			})
		},
	}
}
