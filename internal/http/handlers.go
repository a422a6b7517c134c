package http

import (
	"bytes"
	"net/http"

	"transstats/internal/chart"
	"transstats/internal/core"
	applog "transstats/internal/log"
	"transstats/internal/middleware/trace"
	"transstats/internal/services"
)

// StateResponse describes the load lifecycle and what it produced.
type StateResponse struct {
	services.LoadState
	Generation uint64         `json:"generation"`
	Epoch      core.PeriodKey `json:"epoch"`
	Months     int            `json:"months"`
	Channels   []string       `json:"channels"`
}

func (s *Server) stateResponse() StateResponse {
	return StateResponse{
		LoadState:  s.stats.State(),
		Generation: s.stats.Generation(),
		Epoch:      s.stats.Epoch(),
		Months:     len(s.stats.Months()),
		Channels:   s.stats.Channels(),
	}
}

// fail writes an error response tagged with the request ID.
func fail(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	b.RequestID(trace.GetRequestID(r.Context())).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports ready once data has been loaded at least once.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.stats.State()
	switch {
	case st.Loaded:
		NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
	case st.Loading:
		fail(w, r, ServiceUnavailableError("loading"))
	case st.Error != "":
		fail(w, r, ServiceUnavailableError("load failed: "+st.Error))
	default:
		fail(w, r, ServiceUnavailableError("not loaded"))
	}
}

// handleLoad starts a load unless one is running or data is loaded. With
// ?wait=true it blocks until the load settles or the client goes away.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	wait, err := parseBoolParam(r.URL.Query(), "wait")
	if err != nil {
		fail(w, r, statusFor(err))
		return
	}

	started := s.stats.Trigger(ctx)
	if started {
		logger.InfoContext(ctx, "Load triggered", applog.FieldOperation, applog.OpLoad)
	}
	if wait {
		if err := s.stats.Wait(ctx); err != nil {
			logger.WarnContext(ctx, "Stopped waiting for load", applog.FieldError, err)
		}
	}

	resp := s.stateResponse()
	status := http.StatusOK
	switch {
	case resp.Loading:
		status = http.StatusAccepted
	case resp.Error != "":
		status = http.StatusInternalServerError
	}
	NewJSONResponse().Status(status).Data(resp).Write(w)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.stateResponse()).Write(w)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.stats.Filters()).Write(w)
}

// handleUpdateFilters applies a partial update; fields left out are unchanged.
func (s *Server) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patch, err := ParseFilterPatch(w, r)
	if err != nil {
		fail(w, r, statusFor(err))
		return
	}

	f, err := s.stats.UpdateFilters(patch)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Rejected filter update",
			applog.FieldOperation, applog.OpUpdate,
			applog.FieldError, err)
		fail(w, r, statusFor(err))
		return
	}
	NewJSONResponse().Data(f).Write(w)
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewsFor(r)
	if err != nil {
		fail(w, r, statusFor(err))
		return
	}
	NewJSONResponse().Data(v).Write(w)
}

// handleView serves one view out of the full set.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := s.viewsFor(r)
	if err != nil {
		fail(w, r, statusFor(err))
		return
	}

	var data any
	switch r.PathValue("view") {
	case "timeseries":
		data = v.TimeSeries
	case "channels":
		data = v.PerChannelTotals
	case "stacked":
		data = v.StackedMonthly
	case "totals":
		data = v.GrandTotals
	case "months":
		data = v.FilteredMonths
	case "effective-channels":
		data = v.EffectiveChannels
	default:
		fail(w, r, NotFoundError("unknown view "+sanitizeInput(r.PathValue("view"))))
		return
	}
	NewJSONResponse().Data(data).Write(w)
}

// handleChart renders a chart page. Rendering goes to a buffer first so a
// failure can still produce a clean error response.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := chart.ParseKind(r.PathValue("kind"))
	if err != nil {
		fail(w, r, NotFoundError(err.Error()))
		return
	}

	v, err := s.viewsFor(r)
	if err != nil {
		fail(w, r, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, kind, v); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Chart rendering failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldError, err)
		fail(w, r, InternalServerError("chart rendering failed"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
