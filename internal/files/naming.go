package files

import (
	"fmt"
	"strings"
)

const defaultClientName = "Cliente"

// ReceiptBaseName is Recibo_<number>__<client> with spaces turned into
// underscores. The number must stay in the name: the counter rebuilds itself
// from these files.
func ReceiptBaseName(number, client string) string {
	client = strings.TrimSpace(client)
	if client == "" {
		client = defaultClientName
	}
	client = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, client)
	return fmt.Sprintf("Recibo_%s__%s", number, client)
}

// ReceiptPDFName is the file name the PDF renderer writes.
func ReceiptPDFName(number, client string) string {
	return ReceiptBaseName(number, client) + ".pdf"
}
