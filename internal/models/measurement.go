package models

import (
	"time"
)

// ExtractedFields holds the values pulled out of raw OCR text from an InBody
// readout. Every field is a pointer: nil means "not extracted", which must
// stay observable downstream - no field is ever defaulted to zero.
type ExtractedFields struct {
	WeightKg            *float64 `json:"weightKg,omitempty"`
	MuscleMassKg        *float64 `json:"muscleMassKg,omitempty"`
	FatMassKg           *float64 `json:"fatMassKg,omitempty"`
	FatPercentage       *float64 `json:"fatPercentage,omitempty"`
	BMI                 *float64 `json:"bmi,omitempty"`
	BodyScore           *int     `json:"bodyScore,omitempty"`
	VisceralFat         *float64 `json:"visceralFat,omitempty"`
	BodyWater           *float64 `json:"bodyWater,omitempty"`
	BasalMetabolismKcal *int     `json:"basalMetabolismKcal,omitempty"`

	// MeasurementTimestamp is the canonical "YYYY-MM-DD HH:MM:00" form of the
	// DD.MM.YYYY HH:MM stamp printed on the readout, when one was legible.
	MeasurementTimestamp *string `json:"measurementTimestamp,omitempty"`
	SubjectName          *string `json:"subjectName,omitempty"`

	// RawText is the complete OCR text the fields were extracted from
	RawText string `json:"rawText,omitempty"`
}

// RecognitionResult is what the text recognition engine returns for one image
type RecognitionResult struct {
	RawText           string  `json:"rawText"`
	ConfidenceOverall float64 `json:"confidenceOverall"` // 0-100
}

// ValidationError represents a single hard validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationWarning represents a non-critical plausibility issue
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of field validation. Warnings never affect
// Valid; only Errors do.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// DeltaSet maps a field name to the signed difference against the subject's
// previous measurement. A field appears only when both sides had a value.
type DeltaSet map[string]float64

// Measurement is the assembled record handed to persistence after a pipeline
// run. It combines the extracted fields, the deltas against the prior
// measurement, a validation summary and the OCR provenance block.
type Measurement struct {
	ID        string `json:"id,omitempty"`
	PatientID string `json:"patientId"`
	UserID    string `json:"userId"` // operator who ran the scan

	Fields ExtractedFields `json:"fields"`
	Deltas DeltaSet        `json:"deltas,omitempty"`

	// MeasuredAt is the extracted timestamp when present; otherwise the
	// wall-clock time at assembly (documented fallback, see assembler).
	MeasuredAt    time.Time `json:"measuredAt"`
	Observations  string    `json:"observations"`
	Success       bool      `json:"success"`

	// Provenance
	SourceFilename string  `json:"sourceFilename,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	RawText        string  `json:"rawText,omitempty"`
	Confidence     float64 `json:"confidence"` // 0-100

	ProcessedAt time.Time `json:"processedAt"`
}

// ProcessResponse represents the output of scan processing
type ProcessResponse struct {
	Success     bool         `json:"success"`
	Measurement *Measurement `json:"measurement,omitempty"`
	Error       string       `json:"error,omitempty"`

	// Processing metadata
	OCRDuration   float64 `json:"ocrDuration,omitempty"` // seconds
	TotalDuration float64 `json:"totalDuration"`
}

// Config represents the service configuration
type Config struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	OCR OCRConfig `yaml:"ocr"`
	AI  AIConfig  `yaml:"ai"`
}

// OCRConfig represents recognition-engine configuration
type OCRConfig struct {
	Engine   string `yaml:"engine"`   // "tesseract" or "vision"
	Language string `yaml:"language"` // tesseract language (default: "spa")

	// TargetResolution is the longer-dimension size the preprocessor scales
	// to. Smaller inputs are never upscaled.
	TargetResolution int `yaml:"target_resolution"`

	// LowConfidenceThreshold: recognition confidence below this value is
	// surfaced as a warning on the measurement (default 70).
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`

	// TimeoutSeconds bounds a single recognition call (default 30).
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AIConfig represents vision-model provider configuration, used when the
// configured engine is "vision" instead of local tesseract.
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`

	DefaultProvider string `yaml:"default_provider"` // "openai" or "gemini"

	// AssumedConfidence is reported for vision transcriptions, since vision
	// models do not emit a recognition confidence (default 85).
	AssumedConfidence float64 `yaml:"assumed_confidence"`
}

// OpenAIConfig for OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}
