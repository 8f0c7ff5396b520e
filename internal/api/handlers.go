package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"reciboqr/internal/models"
	"reciboqr/internal/qr"
	"reciboqr/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).ParseFS(templateFS, "templates/*.html"))

// Handler serves receipt verification. It holds no state besides the key.
type Handler struct {
	key []byte
	log zerolog.Logger
}

func NewHandler(key []byte, logger zerolog.Logger) *Handler {
	return &Handler{key: key, log: logger}
}

// HealthHandler answers liveness probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type receiptView struct {
	Receipt models.Receipt
	Net     decimal.Decimal
}

// ReceiptHandler verifies ?p=&s= and shows the receipt it carries.
func (h *Handler) ReceiptHandler(w http.ResponseWriter, r *http.Request) {
	wantJSON := wantsJSON(r)
	p, s := r.URL.Query().Get("p"), r.URL.Query().Get("s")
	if p == "" || s == "" {
		h.writeError(w, r, wantJSON, utils.BadRequest("Falta p o s en la URL.", qr.ErrMissingParams))
		return
	}

	rec, err := qr.DecodeAndVerify(p, s, h.key)
	if err != nil {
		h.writeError(w, r, wantJSON, verifyError(err))
		return
	}

	if wantJSON {
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "recibo": rec})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	receipt, err := toReceipt(rec)
	if err != nil || receipt.Number == "" {
		// signed, but not shaped like a receipt: show it as it came
		h.log.Debug().Err(err).Str("request_id", RequestID(r.Context())).Msg("rendering generic record")
		if err := templates.ExecuteTemplate(w, "record", recordFields(rec)); err != nil {
			h.log.Error().Err(err).Msg("render record")
		}
		return
	}
	if err := templates.ExecuteTemplate(w, "receipt", receiptView{Receipt: receipt, Net: receipt.Net()}); err != nil {
		h.log.Error().Err(err).Msg("render receipt")
	}
}

type recordField struct {
	Key, Value string
}

// recordFields flattens a record into sorted rows; nested values stay JSON.
func recordFields(rec qr.Record) []recordField {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]recordField, 0, len(keys))
	for _, k := range keys {
		out = append(out, recordField{Key: k, Value: fieldValue(rec[k])})
	}
	return out
}

func fieldValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// verifyError keeps the two failure kinds apart: a bad signature says
// nothing more, a bad payload under a good signature is a bug on our side.
func verifyError(err error) *utils.APIError {
	switch {
	case errors.Is(err, qr.ErrInvalidSignature):
		return utils.BadRequest("Firma inválida.", err)
	case errors.Is(err, qr.ErrMalformedPayload):
		return utils.BadRequest("Contenido del QR ilegible.", err)
	}
	return utils.Internal(err)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, asJSON bool, apiErr *utils.APIError) {
	ev := h.log.Warn()
	if apiErr.Code >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(apiErr.Err).Str("request_id", RequestID(r.Context())).Int("status", apiErr.Code).Msg(apiErr.Message)

	if asJSON {
		writeJSON(w, apiErr.Code, map[string]any{"valid": false, "error": apiErr.Message})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(apiErr.Code)
	templates.ExecuteTemplate(w, "error", apiErr.Message)
}

func toReceipt(rec qr.Record) (models.Receipt, error) {
	var out models.Receipt
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
