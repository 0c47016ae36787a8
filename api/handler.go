package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nutriclinica/inbody-ocr-service/internal/auth"
	"github.com/nutriclinica/inbody-ocr-service/internal/db"
	"github.com/nutriclinica/inbody-ocr-service/internal/models"
	"github.com/nutriclinica/inbody-ocr-service/internal/pipeline"
	"github.com/nutriclinica/inbody-ocr-service/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Handler handles HTTP requests for InBody scan processing
type Handler struct {
	config   *models.Config
	pipeline *pipeline.Pipeline
}

// NewHandler creates a new API handler around a configured pipeline
func NewHandler(config *models.Config, p *pipeline.Pipeline) *Handler {
	return &Handler{
		config:   config,
		pipeline: p,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Scan processing
	router.HandleFunc("/api/process-scan", h.ProcessScan).Methods("POST")

	// Measurement CRUD
	router.HandleFunc("/api/measurements", h.GetMeasurements).Methods("GET")
	router.HandleFunc("/api/measurement/{id}", h.GetMeasurement).Methods("GET")
	router.HandleFunc("/api/measurement/{id}", h.UpdateMeasurement).Methods("PUT")
	router.HandleFunc("/api/measurement/{id}", h.DeleteMeasurement).Methods("DELETE")
	router.HandleFunc("/api/measurement/{id}/reprocess", h.ReprocessMeasurement).Methods("POST")
	router.HandleFunc("/api/measurement/{id}/image", h.GetMeasurementImage).Methods("GET")

	// Statistics
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Database  ServiceStatus     `json:"database"`
	Storage   ServiceStatus     `json:"storage"`
	OCR       map[string]string `json:"ocr"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkTesseract()
	databaseStatus := h.checkDatabase()
	storageStatus := h.checkStorage()

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Database:  databaseStatus,
		Storage:   storageStatus,
		OCR: map[string]string{
			"engine":   h.config.OCR.Engine,
			"language": h.config.OCR.Language,
		},
	}

	// The vision engine does not need a local tesseract install
	if !tesseractStatus.Available && h.config.OCR.Engine != "vision" {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkTesseract verifies Tesseract OCR is available
func (h *Handler) checkTesseract() ServiceStatus {
	cmd := exec.Command("tesseract", "--version")
	output, err := cmd.CombinedOutput()

	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		version = strings.TrimSpace(lines[0])
	}

	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// checkDatabase verifies PostgreSQL connection
func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{
			Available: false,
			Error:     "database pool not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "PostgreSQL",
	}
}

// checkStorage verifies MinIO connection
func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{
			Available: false,
			Error:     "storage client not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "MinIO S3",
	}
}

// ProcessScan handles an uploaded InBody scan photo: stores the image, runs
// the extraction pipeline with the patient's prior measurement for deltas,
// persists the result and returns it together with the raw OCR text and
// confidence so the operator can review before accepting.
func (h *Handler) ProcessScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	start := time.Now()

	claims, err := auth.GetClaimsFromContext(ctx)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	// Accept both "file" and "image" field names
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("image")
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "No file provided (use 'file' or 'image' field)")
			return
		}
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}

	patientID := r.FormValue("patient_id")
	if patientID == "" {
		h.sendError(w, http.StatusBadRequest, "patient_id is required")
		return
	}
	if _, err := uuid.Parse(patientID); err != nil {
		h.sendError(w, http.StatusBadRequest, "patient_id must be a valid UUID")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	filename := fmt.Sprintf("%s_%s%s",
		time.Now().Format("20060102_150405"),
		uuid.New().String()[:8],
		storage.GetFileExtension(contentType),
	)

	// Upload original photo to MinIO (if configured). Storage is optional:
	// losing the provenance image never blocks processing.
	var imageURL string
	if storage.Client != nil {
		imageURL, err = storage.UploadScanImage(
			ctx, patientID, filename,
			bytes.NewReader(imageData), int64(len(imageData)), contentType,
		)
		if err != nil {
			fmt.Printf("Warning: failed to upload scan image to MinIO: %v\n", err)
		}
	}

	measurement, err := h.pipeline.Run(ctx, imageData, header.Filename, patientID, claims.UserID, h.priorLookup(""))

	totalDuration := time.Since(start).Seconds()

	if err != nil {
		// Engine failures are retryable by the operator via reprocess
		response := models.ProcessResponse{
			Success:       false,
			Error:         err.Error(),
			TotalDuration: totalDuration,
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
		return
	}

	measurement.ImageURL = imageURL

	var savedRow *db.Measurement
	if db.Pool != nil {
		row, err := measurementToRow(measurement)
		if err != nil {
			fmt.Printf("Warning: failed to map measurement for persistence: %v\n", err)
		} else if err := db.SaveMeasurement(ctx, row); err != nil {
			fmt.Printf("Warning: failed to save measurement to DB: %v\n", err)
		} else {
			savedRow = row
			measurement.ID = row.ID.String()
		}
	}

	responseData := map[string]interface{}{
		"success":       true,
		"measurement":   measurement,
		"rawText":       measurement.RawText,
		"confidence":    measurement.Confidence,
		"totalDuration": totalDuration,
		"saved_to_db":   savedRow != nil,
	}
	if savedRow != nil {
		responseData["image_url"] = fmt.Sprintf("/api/measurement/%s/image", savedRow.ID)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(responseData)
}

// priorLookup builds the pipeline's prior-measurement source. excludeID is
// set when reprocessing, so a measurement is never compared against itself.
func (h *Handler) priorLookup(excludeID string) pipeline.PriorLookup {
	if db.Pool == nil {
		return nil
	}
	return func(ctx context.Context, patientID string) (*models.ExtractedFields, error) {
		return db.GetLatestFields(ctx, patientID, excludeID)
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// measurementToRow maps an assembled measurement to its persisted row shape
func measurementToRow(m *models.Measurement) (*db.Measurement, error) {
	patientID, err := uuid.Parse(m.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient id: %w", err)
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}

	deltasJSON := ""
	if len(m.Deltas) > 0 {
		if dj, err := json.Marshal(m.Deltas); err == nil {
			deltasJSON = string(dj)
		}
	}

	return &db.Measurement{
		PatientID:           patientID,
		UserID:              userID,
		WeightKg:            m.Fields.WeightKg,
		MuscleMassKg:        m.Fields.MuscleMassKg,
		FatMassKg:           m.Fields.FatMassKg,
		FatPercentage:       m.Fields.FatPercentage,
		BMI:                 m.Fields.BMI,
		BodyScore:           m.Fields.BodyScore,
		VisceralFat:         m.Fields.VisceralFat,
		BodyWater:           m.Fields.BodyWater,
		BasalMetabolismKcal: m.Fields.BasalMetabolismKcal,
		MeasuredAt:          m.MeasuredAt,
		Observations:        m.Observations,
		Success:             m.Success,
		ImageURL:            m.ImageURL,
		OCRRaw:              m.RawText,
		Confidence:          m.Confidence,
		DeltasJSON:          deltasJSON,
	}, nil
}
