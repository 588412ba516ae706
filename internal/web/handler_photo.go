package web

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/scaninv/internal/vision"
)

const maxPhotoSize = 20 * 1024 * 1024 // 20 MB

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// handleScanPhoto reads a barcode out of an uploaded photo and scans it as if
// it came from the camera.
func (s *Server) handleScanPhoto(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		s.writeError(w, http.StatusServiceUnavailable, "photo scanning is not configured")
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.Error("read upload failed", "session_id", sess.ID(), "error", err)
		return
	}

	mimeType, ok := allowedImageMIME(imageData)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	result, err := s.reader.ReadBarcode(r.Context(), bytes.NewReader(imageData), mimeType)
	if errors.Is(err, vision.ErrNoBarcode) {
		s.writeError(w, http.StatusUnprocessableEntity, "no barcode found in photo")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadGateway, "failed to read barcode")
		s.logger.Error("read barcode failed", "session_id", sess.ID(), "error", err)
		return
	}

	s.logger.Debug("barcode read from photo", "session_id", sess.ID(), "barcode", result.Barcode)
	s.scan(w, r, sess, result.Barcode)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
