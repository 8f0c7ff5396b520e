package issuer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"reciboqr/internal/files"
	"reciboqr/internal/models"
)

// DirSink drops <name>.json and <name>.qr.png into Dir for the PDF renderer.
// Both names carry the receipt number, so they also count as artifacts for
// counter reconciliation when the scan is not restricted to .pdf.
type DirSink struct {
	Dir string
}

// Envelope is the JSON written next to the QR image.
type Envelope struct {
	Receipt   models.Receipt `json:"recibo"`
	URL       string         `json:"url"`
	Payload   string         `json:"p"`
	Signature string         `json:"s"`
	PDFName   string         `json:"pdf"`
}

func (d DirSink) Deliver(ctx context.Context, iss Issued) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	env := Envelope{
		Receipt:   iss.Receipt,
		URL:       iss.URL,
		Payload:   iss.Tokens.Payload,
		Signature: iss.Tokens.Signature,
		PDFName:   iss.BaseName + ".pdf",
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return files.WriteFileAtomic(filepath.Join(d.Dir, iss.BaseName+".json"), data, 0o644)
	})
	if len(iss.QRPNG) > 0 {
		g.Go(func() error {
			return files.WriteFileAtomic(filepath.Join(d.Dir, iss.BaseName+".qr.png"), iss.QRPNG, 0o644)
		})
	}
	return g.Wait()
}
