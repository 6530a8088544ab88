package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"ricarica/internal/core"
	"ricarica/internal/storage"
)

const dashboardKey = "dashboard"

// loadDashboard returns the cached derived views, recomputing them from
// the session list and settings when the cache misses. The two reads run
// in parallel; the derivations themselves are pure.
func (s *Server) loadDashboard(ctx context.Context) (dashboardData, error) {
	if data, ok := s.dashCache.Get(dashboardKey); ok {
		return data, nil
	}

	var (
		sessions []core.ChargeSession
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.store.ListSessions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.settings.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return dashboardData{}, err
	}

	var completed []core.ChargeSession
	for _, sess := range sessions {
		if sess.Status == core.StatusCompleted {
			completed = append(completed, sess)
		}
	}

	data := dashboardData{
		Sessions: sessions,
		Settings: settings,
		Stats:    core.CalculateStats(completed, settings),
		Analysis: core.CalculateAdvancedAnalysis(completed),
		Forecast: core.CalculateForecast(completed, time.Now()),
	}
	s.dashCache.Set(dashboardKey, data)
	return data, nil
}

// sessionView is the template-friendly projection of a charge session.
type sessionView struct {
	ID          int64
	Date        string
	Supplier    string
	Status      string
	KWh         string
	Cost        string
	KmSinceLast string
	Consumption string
}

func newSessionView(s core.ChargeSession) sessionView {
	v := sessionView{
		ID:       s.ID,
		Date:     s.Date.Format("02/01/2006"),
		Supplier: s.SupplierName,
		Status:   string(s.Status),
		KWh:      formatFloat(s.KWhAdded),
		Cost:     formatEuro(s.Cost),
	}
	if s.KmSinceLast != nil {
		v.KmSinceLast = strconv.FormatFloat(*s.KmSinceLast, 'f', 0, 64)
	}
	if s.Consumption != nil {
		v.Consumption = formatFloat(*s.Consumption)
	}
	return v
}

// handleIndex renders the main page: registration forms plus the dashboard
// panel placeholders that HTMX fills from /ui/*.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	var (
		vehicles  []core.Vehicle
		suppliers []core.Supplier
		settings  core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicles, err = s.vehicles.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		suppliers, err = s.suppliers.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.settings.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Index data load failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	var open *core.ChargeSession
	for _, v := range vehicles {
		sess, err := s.sessions.OpenSession(ctx, v.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Open session lookup failed", "error", err, "vehicle_id", v.ID)
			continue
		}
		if sess != nil {
			open = sess
			break
		}
	}

	// Local-first extras: the sync indicator and the remembered vehicle
	// only exist on the sqlite backend.
	syncing := false
	lastVehicleID := int64(0)
	if repo, ok := s.store.(*storage.SQLiteRepository); ok {
		if pending, err := repo.GetPendingSyncSessions(ctx, 1); err == nil && len(pending) > 0 {
			syncing = true
		}
		if v, err := repo.GetDeviceState(ctx, storage.DeviceKeyLastVehicle); err == nil && v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				lastVehicleID = id
			}
		}
	}

	data := struct {
		Vehicles      []core.Vehicle
		Suppliers     []core.Supplier
		Settings      core.Settings
		OpenSession   *core.ChargeSession
		Syncing       bool
		LastVehicleID int64
	}{
		Vehicles:      vehicles,
		Suppliers:     suppliers,
		Settings:      settings,
		OpenSession:   open,
		Syncing:       syncing,
		LastVehicleID: lastVehicleID,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(ctx, "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleStatsPartial returns the headline figures panel.
func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	dash, err := s.loadDashboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Stats load failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	data := struct {
		HasData         bool
		Sessions        int
		TotalKWh        string
		TotalCost       string
		AvgCostPerKWh   string
		KmDriven        string
		Consumption     string
		GasolineSavings string
		DieselSavings   string
		CO2SavedKg      string
		TreesSaved      string
	}{}
	if st := dash.Stats; st != nil {
		data.HasData = true
		data.Sessions = st.Sessions
		data.TotalKWh = formatFloat(st.TotalKWh)
		data.TotalCost = formatEuro(st.TotalCost)
		data.AvgCostPerKWh = formatEuro(st.AvgCostPerKWh)
		data.KmDriven = strconv.FormatFloat(st.KmDriven, 'f', 0, 64)
		data.Consumption = formatFloat(st.Consumption)
		data.GasolineSavings = formatEuro(st.GasolineSavings)
		data.DieselSavings = formatEuro(st.DieselSavings)
		data.CO2SavedKg = formatFloat(st.CO2SavedKg)
		data.TreesSaved = formatFloat(st.TreesSaved)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "stats_panel", data); err != nil {
		slog.ErrorContext(ctx, "Stats template failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleAnalysisPartial returns the consumption trend panel.
func (s *Server) handleAnalysisPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	dash, err := s.loadDashboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Analysis load failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	data := struct {
		HasData    bool
		Best       string
		Worst      string
		Avg        string
		AvgLast5   string
		Trend      string
		TrendClass string
		Efficiency string
		Comment    string
	}{}
	if an := dash.Analysis; an != nil {
		data.HasData = true
		data.Best = formatFloat(an.Best)
		data.Worst = formatFloat(an.Worst)
		data.Avg = formatFloat(an.Avg)
		data.AvgLast5 = formatFloat(an.AvgLast5)
		data.Trend = formatFloat(an.Trend)
		data.Efficiency = strconv.FormatFloat(an.Efficiency, 'f', 0, 64)
		data.Comment = an.Comment
		if an.Trend < 0 {
			data.TrendClass = "trend--down"
		} else if an.Trend > 0 {
			data.TrendClass = "trend--up"
		} else {
			data.TrendClass = "trend--neutral"
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "analysis_panel", data); err != nil {
		slog.ErrorContext(ctx, "Analysis template failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleForecastPartial returns the next-month projection panel.
func (s *Server) handleForecastPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	dash, err := s.loadDashboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Forecast load failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	data := struct {
		HasData bool
		Cost    string
		KWh     string
		Km      string
		AvgCost string
		Trend   string
		Comment string
	}{}
	if fc := dash.Forecast; fc != nil {
		data.HasData = true
		data.Cost = formatEuro(fc.Cost)
		data.KWh = formatFloat(fc.KWh)
		data.Km = strconv.FormatFloat(fc.Km, 'f', 0, 64)
		data.AvgCost = formatEuro(fc.AvgCost)
		data.Trend = formatFloat(fc.Trend)
		data.Comment = fc.Comment
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "forecast_panel", data); err != nil {
		slog.ErrorContext(ctx, "Forecast template failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSessionsPartial returns the recent sessions list.
func (s *Server) handleSessionsPartial(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 7*time.Second)
	defer cancel()

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	dash, err := s.loadDashboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sessions load failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	sessions := dash.Sessions
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, newSessionView(sess))
	}

	data := struct {
		Sessions []sessionView
	}{Sessions: views}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "session_list", data); err != nil {
		slog.ErrorContext(ctx, "Session list template failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
