package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/dashboard"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := dashboard.NewPage(s.svc.Snapshot(), s.now())

	var buf bytes.Buffer
	if err := s.pages.Render(&buf, page); err != nil {
		s.logger.Error("render_failed", zap.Error(err))
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// The form handlers always redirect back to the page: rejected input is
// logged by the service and otherwise ignored.

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		_ = s.svc.Add(r.Context(), strings.TrimSpace(r.PostFormValue("url")))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRemoveForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		s.svc.Remove(r.Context(), r.PostFormValue("url"))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfigForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	check, errC := strconv.Atoi(strings.TrimSpace(r.PostFormValue("check_interval")))
	refresh, errR := strconv.Atoi(strings.TrimSpace(r.PostFormValue("refresh_interval")))
	if errC != nil || errR != nil {
		s.logger.Info("config_form_rejected",
			zap.String("check_interval", r.PostFormValue("check_interval")),
			zap.String("refresh_interval", r.PostFormValue("refresh_interval")),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.svc.UpdateConfig(r.Context(), check, refresh)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
