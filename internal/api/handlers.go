// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/translate"
)

const xmlContentType = "text/xml; charset=utf-8"

// handleTranslate serves GET /translate?url=<feed>.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	res, err := s.translator.Translate(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeTranslateError(w, r, err, false)
		return
	}
	writeXMLTV(w, r, res)
}

// handleConvert serves POST /convert with the feed document as the body.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn().
				Str(log.FieldEvent, "convert.body_too_large").
				Int64("limit", tooLarge.Limit).
				Msg("upload exceeds size limit")
			problem.Write(w, r, http.StatusRequestEntityTooLarge, "convert/body_too_large", "Payload Too Large",
				"BODY_TOO_LARGE", "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", nil)
			return
		}
		problem.Write(w, r, http.StatusBadRequest, "convert/bad_request", "Bad Request",
			"BAD_REQUEST", "failed to read request body", nil)
		return
	}

	res, err := s.translator.ConvertBytes(r.Context(), body, translate.SourceUpload)
	if err != nil {
		writeTranslateError(w, r, err, true)
		return
	}
	writeXMLTV(w, r, res)
}

func writeXMLTV(w http.ResponseWriter, r *http.Request, res translate.Result) {
	w.Header().Set("Content-Type", xmlContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Document)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Document); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).
			Str(log.FieldEvent, "xmltv.write_failed").
			Msg("client went away while writing document")
	}
}
