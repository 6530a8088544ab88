package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ricarica/internal/core"
	"ricarica/internal/services"
	"ricarica/internal/storage"
)

// handleStartSession opens an in-progress session for a vehicle.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	vehicleID, err := idField(r.Form, "vehicle_id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	supplierID, err := idField(r.Form, "supplier_id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	odometer, err := decimalField(r.Form, "odometer")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	batteryStart, err := decimalField(r.Form, "battery_start")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	var date time.Time
	if v := formValue(r.Form, "date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			UnprocessableEntityError("Data non valida").Write(w)
			return
		}
		date = parsed
	}

	session, err := s.sessions.Start(r.Context(), services.StartInput{
		VehicleID:    vehicleID,
		SupplierID:   supplierID,
		Odometer:     odometer,
		BatteryStart: batteryStart,
		Date:         date,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Session start failed", "error", err, "vehicle_id", vehicleID)
		serviceError(err).Write(w)
		return
	}

	// Remember the vehicle for pre-selection on the next page load.
	if repo, ok := s.store.(*storage.SQLiteRepository); ok {
		if err := repo.SetDeviceState(r.Context(), storage.DeviceKeyLastVehicle, strconv.FormatInt(vehicleID, 10)); err != nil {
			slog.WarnContext(r.Context(), "Device state update failed", "error", err)
		}
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		TriggerSessionStarted(session.ID).
		TriggerSuccessNotification("Ricarica avviata").
		BodyHTML(`<div class="success">Ricarica avviata</div>`).
		Write(w)
}

// handleStopSession completes the open session and derives its figures.
func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	sessionID, err := idField(r.Form, "session_id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	kwh, err := decimalField(r.Form, "kwh_added")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	batteryEnd, err := decimalField(r.Form, "battery_end")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	cost, err := optionalDecimalField(r.Form, "cost")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	var endDate *time.Time
	if v := formValue(r.Form, "end_date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			UnprocessableEntityError("Data di fine non valida").Write(w)
			return
		}
		endDate = &parsed
	}

	session, err := s.sessions.Stop(r.Context(), services.StopInput{
		SessionID:  sessionID,
		BatteryEnd: &batteryEnd,
		KWhAdded:   kwh,
		Cost:       cost,
		EndDate:    endDate,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Session stop failed", "error", err, "session_id", sessionID)
		serviceError(err).Write(w)
		return
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		TriggerSessionCompleted(session.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Ricarica registrata: " + formatEuro(session.Cost)).
		BodyHTML(`<div class="success">Ricarica completata</div>`).
		Write(w)
}

// handleManualSession records a completed session in a single step.
func (s *Server) handleManualSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	vehicleID, err := idField(r.Form, "vehicle_id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	supplierID, err := idField(r.Form, "supplier_id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	odometer, err := decimalField(r.Form, "odometer")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	batteryStart, err := decimalField(r.Form, "battery_start")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	batteryEnd, err := optionalDecimalField(r.Form, "battery_end")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	kwh, err := decimalField(r.Form, "kwh_added")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	cost, err := optionalDecimalField(r.Form, "cost")
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	date := time.Now()
	if v := formValue(r.Form, "date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			UnprocessableEntityError("Data non valida").Write(w)
			return
		}
		date = parsed
	}
	var endDate *time.Time
	if v := formValue(r.Form, "end_date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			UnprocessableEntityError("Data di fine non valida").Write(w)
			return
		}
		endDate = &parsed
	}

	session, err := s.sessions.SaveManual(r.Context(), services.ManualInput{
		VehicleID:    vehicleID,
		SupplierID:   supplierID,
		Date:         date,
		EndDate:      endDate,
		Odometer:     odometer,
		BatteryStart: batteryStart,
		BatteryEnd:   batteryEnd,
		KWhAdded:     kwh,
		Cost:         cost,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Manual session failed", "error", err, "vehicle_id", vehicleID)
		serviceError(err).Write(w)
		return
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		TriggerSessionCompleted(session.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Ricarica registrata: " + formatEuro(session.Cost)).
		BodyHTML(`<div class="success">Ricarica registrata</div>`).
		Write(w)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := queryID(r)
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	if err := s.sessions.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Session delete failed", "error", err, "session_id", id)
		serviceError(err).Write(w)
		return
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		TriggerSessionDeleted(id).
		TriggerSuccessNotification("Ricarica eliminata").
		Write(w)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	capacity, err := decimalField(r.Form, "capacity_kwh")
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	vehicle := core.Vehicle{
		Name:        formValue(r.Form, "name"),
		Brand:       formValue(r.Form, "brand"),
		CapacityKWh: capacity,
		ImageURL:    formValue(r.Form, "image_url"),
	}
	created, err := s.vehicles.Create(r.Context(), vehicle)
	if err != nil {
		slog.ErrorContext(r.Context(), "Vehicle create failed", "error", err, "name", vehicle.Name)
		serviceError(err).Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("vehicle:created", map[string]int64{"id": created.ID}).
		TriggerSuccessNotification("Veicolo aggiunto").
		BodyHTML(`<div class="success">Veicolo aggiunto</div>`).
		Write(w)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := queryID(r)
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	if err := s.vehicles.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Vehicle delete failed", "error", err, "vehicle_id", id)
		serviceError(err).Write(w)
		return
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		Trigger("vehicle:deleted", map[string]int64{"id": id}).
		TriggerSuccessNotification("Veicolo eliminato").
		Write(w)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	standardCost, err := decimalField(r.Form, "standard_cost")
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	supplier := core.Supplier{
		Name:         formValue(r.Form, "name"),
		Type:         core.SupplierType(formValue(r.Form, "type")),
		StandardCost: standardCost,
	}
	created, err := s.suppliers.Create(r.Context(), supplier)
	if err != nil {
		slog.ErrorContext(r.Context(), "Supplier create failed", "error", err, "name", supplier.Name)
		serviceError(err).Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("supplier:created", map[string]int64{"id": created.ID}).
		TriggerSuccessNotification("Fornitore aggiunto").
		BodyHTML(`<div class="success">Fornitore aggiunto</div>`).
		Write(w)
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := idField(r.Form, "id")
	if err != nil {
		serviceError(err).Write(w)
		return
	}
	standardCost, err := decimalField(r.Form, "standard_cost")
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	supplier := core.Supplier{
		ID:           id,
		Name:         formValue(r.Form, "name"),
		Type:         core.SupplierType(formValue(r.Form, "type")),
		StandardCost: standardCost,
	}
	if err := s.suppliers.Update(r.Context(), supplier); err != nil {
		slog.ErrorContext(r.Context(), "Supplier update failed", "error", err, "supplier_id", id)
		serviceError(err).Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("supplier:updated", map[string]int64{"id": id}).
		TriggerSuccessNotification("Fornitore aggiornato").
		Write(w)
}

func (s *Server) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, err := queryID(r)
	if err != nil {
		serviceError(err).Write(w)
		return
	}

	if err := s.suppliers.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Supplier delete failed", "error", err, "supplier_id", id)
		serviceError(err).Write(w)
		return
	}

	NewHTMXResponse().
		Trigger("supplier:deleted", map[string]int64{"id": id}).
		TriggerSuccessNotification("Fornitore eliminato").
		Write(w)
}

// handleSaveSettings stores the global prices. Sessions completed before
// the save keep their snapshot figures.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	var settings core.Settings
	var err error
	if settings.GasolinePrice, err = decimalField(r.Form, "gasoline_price"); err != nil {
		serviceError(err).Write(w)
		return
	}
	if settings.GasolineConsumption, err = decimalField(r.Form, "gasoline_consumption"); err != nil {
		serviceError(err).Write(w)
		return
	}
	if settings.DieselPrice, err = decimalField(r.Form, "diesel_price"); err != nil {
		serviceError(err).Write(w)
		return
	}
	if settings.DieselConsumption, err = decimalField(r.Form, "diesel_consumption"); err != nil {
		serviceError(err).Write(w)
		return
	}
	if settings.HomeElectricityPrice, err = decimalField(r.Form, "home_electricity_price"); err != nil {
		serviceError(err).Write(w)
		return
	}

	if err := s.settings.Save(r.Context(), settings); err != nil {
		slog.ErrorContext(r.Context(), "Settings save failed", "error", err)
		serviceError(err).Write(w)
		return
	}

	s.invalidateDashboard()
	NewHTMXResponse().
		TriggerSettingsSaved().
		TriggerSuccessNotification("Impostazioni salvate").
		BodyHTML(`<div class="success">Impostazioni salvate</div>`).
		Write(w)
}
