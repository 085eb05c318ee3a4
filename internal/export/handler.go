package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/freeflow/freeflow/backend-go/internal/document"
	"github.com/freeflow/freeflow/backend-go/internal/element"
)

const maxUploadSize = 10 << 20 // 10MB

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ExportPDF renders the board file in the request body. The optional
// "name" query parameter sets the download filename.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "request too large", http.StatusBadRequest)
		return
	}

	f, err := document.Decode(data)
	if err != nil {
		slog.Warn("export: invalid document", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := Options{Title: r.URL.Query().Get("name")}
	if f.AppState != nil {
		opts.DarkMode = f.AppState.DarkMode
	}
	WritePDF(w, f.Elements, opts)
}

// WritePDF renders elements and sends them as a PDF attachment.
func WritePDF(w http.ResponseWriter, elements []element.Element, opts Options) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, elements, opts); err != nil {
		slog.Error("export: render pdf", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, SanitizeFilename(opts.Title)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("export: write response", "error", err)
	}
}

// SanitizeFilename keeps letters, digits, '-' and '_'; everything else
// becomes '-'. An empty name becomes "board".
func SanitizeFilename(name string) string {
	if name == "" {
		return "board"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
