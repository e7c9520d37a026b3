package http

import (
	"errors"
	"io"
	"net/http"

	applog "billtrack/internal/log"
	"billtrack/internal/services"
)

// handleUpload stores the multipart "file" part for a row and returns the
// row with its extracted text.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.UploadLimit {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.UploadLimit)
	if err := r.ParseMultipartForm(s.opts.UploadLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	row, err := s.rows.Upload(r.Context(), rowID(r), sanitizeFileName(header.Filename), data)
	if err != nil {
		fail(w, r, "upload", err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "File uploaded",
		applog.FieldRowID, row.ID, "bytes", len(data), "ocr_chars", len(row.OCRText))
	writeJSON(w, http.StatusOK, row)
}

// handleRunOCR re-extracts the stored PDF. Extraction failures are reported
// with their message, as the client shows it verbatim.
func (s *Server) handleRunOCR(w http.ResponseWriter, r *http.Request) {
	row, err := s.rows.RunOCR(r.Context(), rowID(r))
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "OCR failed",
				applog.FieldRowID, rowID(r), applog.FieldError, err)
			msg = err.Error()
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	summary, err := s.rows.Audit(r.Context())
	if err != nil {
		fail(w, r, "audit", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	data, err := s.rows.Chart(r.Context())
	if err != nil {
		fail(w, r, "chart data", err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleReport renders the PDF report. A POST body may override the rows
// and the summary; any failure is a 400 with the error text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var in services.ReportInput
	if r.Method == http.MethodPost {
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	data, name, err := s.rows.Report(r.Context(), in)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Report failed", applog.FieldError, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writePDF(w, name, data)
}
