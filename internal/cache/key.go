package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"sismobi/internal/core"
)

// Part is one labelled block of a cache key: a list of records, each a tuple of fields.
type Part struct {
	Label   string
	Records [][]any
}

var fallbackSeq atomic.Uint64

// Key builds a stable key for op over parts. Records are serialized as JSON
// tuples and length-prefixed, so no field content can imitate a separator.
// When a field cannot be serialized (a raw NaN float) a unique fallback key
// is returned; it never matches a stored entry.
func Key(op string, parts ...Part) string {
	h := sha256.New()
	for _, p := range parts {
		writeChunk(h, []byte(p.Label))
		writeChunk(h, []byte(strconv.Itoa(len(p.Records))))
		for _, rec := range p.Records {
			b, err := json.Marshal(rec)
			if err != nil {
				return FallbackKey(op)
			}
			writeChunk(h, b)
		}
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}

// FallbackKey returns a key that is unique for the life of the process.
func FallbackKey(op string) string {
	return fmt.Sprintf("%s:fallback-%d-%d", op, time.Now().UnixNano(), fallbackSeq.Add(1))
}

type byteWriter interface {
	Write([]byte) (int, error)
}

func writeChunk(w byteWriter, b []byte) {
	w.Write([]byte(strconv.Itoa(len(b))))
	w.Write([]byte{':'})
	w.Write(b)
}

// Bucket scopes a key to a time window such as "2024-03".
func Bucket(label string) Part {
	return Part{Label: "bucket", Records: [][]any{{label}}}
}

// Records are encoded through their JSON form, so every field a computation
// may read is part of the key. Non-numeric amounts encode as null and invalid
// dates as their raw text.

// Properties contributes every property in full.
func Properties(props []core.Property) Part {
	return records("properties", props)
}

// Transactions contributes every transaction in full.
func Transactions(txs []core.Transaction) Part {
	return records("transactions", txs)
}

// Tenants contributes every tenant in full.
func Tenants(tenants []core.Tenant) Part {
	return records("tenants", tenants)
}

// Bills contributes every utility bill in full.
func Bills(label string, bills []core.UtilityBill) Part {
	return records(label, bills)
}

func records[T any](label string, items []T) Part {
	recs := make([][]any, len(items))
	for i, item := range items {
		recs[i] = []any{item}
	}
	return Part{Label: label, Records: recs}
}
