package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nutriclinica/inbody-ocr-service/internal/auth"
	"github.com/nutriclinica/inbody-ocr-service/internal/db"
	"github.com/nutriclinica/inbody-ocr-service/internal/storage"
)

// GetMeasurements returns recent measurements, optionally filtered by
// ?patient=<uuid>.
func (h *Handler) GetMeasurements(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	patientID := r.URL.Query().Get("patient")

	measurements, err := db.GetMeasurements(ctx, patientID, 100)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get measurements: %v", err))
		return
	}

	// Generate presigned URLs for stored scan photos
	for i := range measurements {
		if measurements[i].ImageURL != "" && storage.Client != nil {
			if presignedURL, err := storage.GetPresignedURL(ctx, measurements[i].ImageURL); err == nil {
				measurements[i].ImageURL = presignedURL
			}
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":      true,
		"measurements": measurements,
		"count":        len(measurements),
	})
}

// GetMeasurement returns a single measurement
func (h *Handler) GetMeasurement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	measurementID := vars["id"]

	measurement, err := db.GetMeasurementByID(ctx, measurementID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("measurement not found: %v", err))
		return
	}

	if measurement.ImageURL != "" && storage.Client != nil {
		if presignedURL, err := storage.GetPresignedURL(ctx, measurement.ImageURL); err == nil {
			measurement.ImageURL = presignedURL
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"measurement": measurement,
	})
}

// UpdateMeasurement lets an operator correct extracted values after manual
// review. Only measurement columns may be touched; provenance is immutable.
func (h *Handler) UpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	measurementID := vars["id"]

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	allowed := map[string]bool{
		"weight_kg":             true,
		"muscle_mass_kg":        true,
		"fat_mass_kg":           true,
		"fat_percentage":        true,
		"bmi":                   true,
		"body_score":            true,
		"visceral_fat":          true,
		"body_water":            true,
		"basal_metabolism_kcal": true,
		"measured_at":           true,
		"observations":          true,
		"success":               true,
	}
	filtered := make(map[string]interface{})
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}

	if len(filtered) == 0 {
		h.sendError(w, http.StatusBadRequest, "no valid fields to update")
		return
	}

	if err := db.UpdateMeasurement(ctx, measurementID, filtered); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to update measurement")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "measurement updated",
	})
}

// DeleteMeasurement removes a measurement and its stored scan photo
func (h *Handler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	measurementID := vars["id"]

	if storage.Client != nil {
		measurement, err := db.GetMeasurementByID(ctx, measurementID)
		if err == nil && measurement.ImageURL != "" {
			_ = storage.DeleteImage(ctx, measurement.ImageURL)
		}
	}

	if err := db.DeleteMeasurement(ctx, measurementID); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to delete measurement")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "measurement deleted",
	})
}

// ReprocessMeasurement re-runs the extraction pipeline over a stored scan
// photo, the retry path for engine failures and low-confidence results.
func (h *Handler) ReprocessMeasurement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	start := time.Now()

	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil || storage.Client == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database or storage not available")
		return
	}

	vars := mux.Vars(r)
	measurementID := vars["id"]

	existing, err := db.GetMeasurementByID(ctx, measurementID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("measurement not found: %v", err))
		return
	}
	if existing.ImageURL == "" {
		h.sendError(w, http.StatusConflict, "measurement has no stored scan image")
		return
	}

	imageData, err := storage.GetScanImage(ctx, existing.ImageURL)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scan image: %v", err))
		return
	}

	measurement, err := h.pipeline.Run(ctx, imageData, existing.ImageURL,
		existing.PatientID.String(), claims.UserID, h.priorLookup(measurementID))
	if err != nil {
		h.sendError(w, http.StatusBadGateway, fmt.Sprintf("reprocessing failed: %v", err))
		return
	}

	updates := map[string]interface{}{
		"weight_kg":             measurement.Fields.WeightKg,
		"muscle_mass_kg":        measurement.Fields.MuscleMassKg,
		"fat_mass_kg":           measurement.Fields.FatMassKg,
		"fat_percentage":        measurement.Fields.FatPercentage,
		"bmi":                   measurement.Fields.BMI,
		"body_score":            measurement.Fields.BodyScore,
		"visceral_fat":          measurement.Fields.VisceralFat,
		"body_water":            measurement.Fields.BodyWater,
		"basal_metabolism_kcal": measurement.Fields.BasalMetabolismKcal,
		"measured_at":           measurement.MeasuredAt,
		"observations":          measurement.Observations,
		"success":               measurement.Success,
		"ocr_raw":               measurement.RawText,
		"confidence":            measurement.Confidence,
	}
	if len(measurement.Deltas) > 0 {
		if dj, err := json.Marshal(measurement.Deltas); err == nil {
			updates["deltas_json"] = string(dj)
		}
	}

	if err := db.UpdateMeasurement(ctx, measurementID, updates); err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save reprocessed measurement: %v", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":       true,
		"measurement":   measurement,
		"rawText":       measurement.RawText,
		"confidence":    measurement.Confidence,
		"totalDuration": time.Since(start).Seconds(),
	})
}

// GetMeasurementImage redirects to a presigned URL for the stored scan photo
func (h *Handler) GetMeasurementImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil || storage.Client == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database or storage not available")
		return
	}

	vars := mux.Vars(r)
	measurementID := vars["id"]

	measurement, err := db.GetMeasurementByID(ctx, measurementID)
	if err != nil || measurement.ImageURL == "" {
		h.sendError(w, http.StatusNotFound, "scan image not found")
		return
	}

	presignedURL, err := storage.GetPresignedURL(ctx, measurement.ImageURL)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to generate image URL")
		return
	}

	http.Redirect(w, r, presignedURL, http.StatusTemporaryRedirect)
}

// GetStats returns monthly scan statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	stats, err := db.GetMonthlyStats(ctx)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}
