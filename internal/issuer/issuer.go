// Package issuer turns a receipt draft into a numbered, signed receipt and
// hands it to a Sink (the PDF renderer, or a directory for it to pick up).
package issuer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"reciboqr/internal/counter"
	"reciboqr/internal/files"
	"reciboqr/internal/models"
	"reciboqr/internal/qr"
)

// Sequencer hands out receipt numbers. *counter.Store implements it.
type Sequencer interface {
	PeekNext() (counter.Number, error)
	IssueNext() (counter.Number, error)
}

// Issued is everything a renderer needs for one receipt.
type Issued struct {
	Receipt  models.Receipt
	Tokens   qr.TokenPair
	URL      string
	QRPNG    []byte
	BaseName string
}

// Sink consumes issued receipts.
type Sink interface {
	Deliver(ctx context.Context, iss Issued) error
}

type Options struct {
	BaseURL   string
	Key       []byte
	ImageSize int
	// SkipImage leaves Issued.QRPNG empty for renderers that draw the code themselves.
	SkipImage bool
	Now       func() time.Time
	Logger    zerolog.Logger
}

type Issuer struct {
	seq  Sequencer
	sink Sink
	opts Options
	log  zerolog.Logger
}

func New(seq Sequencer, sink Sink, opts Options) *Issuer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Issuer{
		seq:  seq,
		sink: sink,
		opts: opts,
		log:  opts.Logger.With().Str("component", "issuer").Logger(),
	}
}

// Preview shows the number the next Issue would most likely get. Another
// workstation may take it first.
func (i *Issuer) Preview() (counter.Number, error) {
	return i.seq.PeekNext()
}

// Issue validates the draft, claims a number and signs the result. The
// number is only spent after validation passes; once spent it is never
// returned, even if signing or delivery fails afterwards.
func (i *Issuer) Issue(ctx context.Context, draft models.Receipt) (Issued, error) {
	draft.Normalize()
	if err := draft.Validate(i.opts.Now()); err != nil {
		return Issued{}, errors.Wrap(err, "invalid receipt")
	}
	if draft.PaymentsMismatch() {
		i.log.Warn().
			Str("payments", draft.PaymentsTotal().StringFixed(2)).
			Str("expected", draft.Total.Sub(draft.RetentionTotal()).StringFixed(2)).
			Msg("payments do not match total minus retentions")
	}
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}

	num, err := i.seq.IssueNext()
	if err != nil {
		return Issued{}, errors.Wrap(err, "issue receipt number")
	}
	draft.Number = num.String()
	log := i.log.With().Str("number", draft.Number).Logger()

	tokens, err := qr.Encode(draft, i.opts.Key)
	if err != nil {
		log.Error().Err(err).Msg("number issued but receipt could not be signed")
		return Issued{}, errors.Wrapf(err, "sign receipt %s", draft.Number)
	}
	iss := Issued{
		Receipt:  draft,
		Tokens:   tokens,
		URL:      qr.BuildURL(i.opts.BaseURL, tokens),
		BaseName: files.ReceiptBaseName(draft.Number, draft.Client),
	}
	if !i.opts.SkipImage {
		if iss.QRPNG, err = qr.RenderPNG(iss.URL, i.opts.ImageSize); err != nil {
			log.Error().Err(err).Msg("number issued but qr image failed")
			return Issued{}, err
		}
	}
	if i.sink != nil {
		if err := i.sink.Deliver(ctx, iss); err != nil {
			log.Error().Err(err).Msg("number issued but delivery failed")
			return Issued{}, errors.Wrapf(err, "deliver receipt %s", draft.Number)
		}
	}
	log.Info().Str("client", draft.Client).Msg("receipt issued")
	return iss, nil
}
