package vision

import (
	"context"
	"errors"
	"io"
)

// BarcodePrompt is the shared prompt used by all vision adapters.
const BarcodePrompt = `Read the barcode in this photo of a product label.
Reply with the barcode value only: the digits printed under the bars,
or the encoded text for non-numeric symbologies. No other words.
If no barcode is visible, reply NONE.`

// ErrNoBarcode is returned when the model saw no readable barcode.
var ErrNoBarcode = errors.New("no barcode found in image")

// BarcodeReader extracts a barcode value from a photo. It stands in for a
// camera scanner when only a still image is available.
type BarcodeReader interface {
	ReadBarcode(ctx context.Context, r io.Reader, mimeType string) (*ReadResult, error)
}

type ReadResult struct {
	Barcode     string
	RawResponse string
}

// NewReadResult parses a model reply into a ReadResult.
func NewReadResult(raw string) (*ReadResult, error) {
	barcode, err := ParseBarcode(raw)
	if err != nil {
		return nil, err
	}
	return &ReadResult{Barcode: barcode, RawResponse: raw}, nil
}
