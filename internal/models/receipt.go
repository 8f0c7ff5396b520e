package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// DateLayout is how receipt and payment dates are written (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// Retention kinds printed on every receipt.
const (
	RetentionGanancias = "Ganancias"
	RetentionSUSS      = "SUSS"
	RetentionTEM       = "TEM"
	RetentionIIBB      = "IIBB"
)

var paymentTolerance = decimal.New(1, -2)

func init() {
	// QR payloads carry amounts as JSON numbers, as the first receipts did.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrDateRequired   = errors.New("date is required")
	ErrClientRequired = errors.New("client is required")
	ErrInvalidDate    = errors.New("date must be DD/MM/YYYY")
	ErrFutureDate     = errors.New("date is in the future")
	ErrNegativeAmount = errors.New("amounts cannot be negative")
)

// Payment is one line of the payment table.
type Payment struct {
	Type   string          `json:"tipo"`
	Number string          `json:"numero"`
	Bank   string          `json:"banco"`
	Date   string          `json:"fecha"`
	Amount decimal.Decimal `json:"importe"`
}

// Receipt is the record printed on the PDF and signed into the QR code.
// The JSON names are part of the QR payload and must not change.
type Receipt struct {
	Number     string                     `json:"numero_recibo"`
	Date       string                     `json:"fecha"`
	Client     string                     `json:"cliente"`
	Address    string                     `json:"domicilio"`
	City       string                     `json:"localidad"`
	TaxID      string                     `json:"cuit"`
	VATStatus  string                     `json:"iva"`
	Concept    string                     `json:"concepto"`
	Retentions map[string]decimal.Decimal `json:"retenciones"`
	Payments   []Payment                  `json:"forma_pago"`
	Total      decimal.Decimal            `json:"total"`
}

// RetentionTotal sums all retentions.
func (r Receipt) RetentionTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range r.Retentions {
		sum = sum.Add(v)
	}
	return sum
}

// Net is Total minus retentions, floored at zero.
func (r Receipt) Net() decimal.Decimal {
	net := r.Total.Sub(r.RetentionTotal())
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

func (r Receipt) PaymentsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// PaymentsMismatch reports whether the payments differ from Total minus
// retentions by more than a cent. Callers ask for confirmation, it is not an error.
func (r Receipt) PaymentsMismatch() bool {
	expected := r.Total.Sub(r.RetentionTotal())
	return r.PaymentsTotal().Sub(expected).Abs().GreaterThan(paymentTolerance)
}

// Validate checks what must hold before a number is spent on the receipt.
// now is the reference for the future-date check.
func (r Receipt) Validate(now time.Time) error {
	if strings.TrimSpace(r.Date) == "" {
		return ErrDateRequired
	}
	if strings.TrimSpace(r.Client) == "" {
		return ErrClientRequired
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.Date), now.Location())
	if err != nil {
		return errors.Wrapf(ErrInvalidDate, "%q", r.Date)
	}
	y, m, day := now.Date()
	if d.After(time.Date(y, m, day, 0, 0, 0, 0, now.Location())) {
		return errors.Wrapf(ErrFutureDate, "%s", r.Date)
	}
	if r.Total.IsNegative() {
		return ErrNegativeAmount
	}
	for _, v := range r.Retentions {
		if v.IsNegative() {
			return ErrNegativeAmount
		}
	}
	return nil
}

// Normalize trims text fields and fills in the standard retention kinds.
func (r *Receipt) Normalize() {
	for _, s := range []*string{&r.Date, &r.Client, &r.Address, &r.City, &r.TaxID, &r.VATStatus, &r.Concept} {
		*s = strings.TrimSpace(*s)
	}
	if r.Retentions == nil {
		r.Retentions = map[string]decimal.Decimal{}
	}
	for _, k := range []string{RetentionGanancias, RetentionSUSS, RetentionTEM, RetentionIIBB} {
		if _, ok := r.Retentions[k]; !ok {
			r.Retentions[k] = decimal.Zero
		}
	}
	if r.Payments == nil {
		r.Payments = []Payment{}
	}
}
