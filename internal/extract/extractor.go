// Package extract turns raw OCR text from an InBody readout into named,
// typed measurement fields. Extraction never fails: a field whose patterns
// do not match, or whose value does not parse, is simply left absent.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// Pattern rules per field, evaluated in order: the first matching rule wins.
// Labels are case-insensitive and tolerant of OCR noise between label and
// value; units anchor the value so overlapping labels cannot contaminate
// each other (Grasa corporal ... kg vs Porcentaje de grasa corporal ... %).
var (
	weightLabeledRe = regexp.MustCompile(`(?i)peso\D{0,15}?(\d+(?:\.\d+)?)\s*kg`)
	weightBareRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*kg`)

	muscleMassRe = regexp.MustCompile(`(?i)masa\s+muscular\D*?(\d+(?:\.\d+)?)\s*kg`)
	fatMassRe    = regexp.MustCompile(`(?i)grasa\s+corporal\D*?(\d+(?:\.\d+)?)\s*kg`)

	// Matches both "Porcentaje de grasa corporal 33.8%" and a bare
	// "grasa corporal 33.8%"; the % anchor keeps it off the kg value.
	fatPercentageRe = regexp.MustCompile(`(?i)(?:porcentaje\s+de\s+)?grasa\s+corporal\D*?(\d+(?:\.\d+)?)\s*%`)

	// Unit truncated to "kg/m": OCR rarely gets the superscript 2 right
	bmiRe = regexp.MustCompile(`(?i)imc\D*?(\d+(?:\.\d+)?)\s*kg/m`)

	bodyScoreRe = regexp.MustCompile(`(?i)(\d+)\s*puntos`)

	timestampRe = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4}\s+\d{1,2}:\d{2})`)

	subjectNameRe = regexp.MustCompile(`(?i)(?:usuario|nombre)\s*:?\s*([A-Za-z\x{c1}\x{c9}\x{cd}\x{d3}\x{da}\x{d1}\x{e1}\x{e9}\x{ed}\x{f3}\x{fa}\x{f1}]+)`)

	visceralFatRe = regexp.MustCompile(`(?i)grasa\s+visceral\D*?(\d+(?:\.\d+)?)`)
	bodyWaterRe   = regexp.MustCompile(`(?i)agua\s+corporal\D*?(\d+(?:\.\d+)?)`)
	basalRe       = regexp.MustCompile(`(?i)metabolismo\s+basal\D*?(\d+)`)
)

// kg values claimed by more specific labels; the bare weight fallback must
// skip numbers that belong to them.
var kgLabelOwners = []string{"masa muscular", "grasa corporal", "imc"}

// Extract applies the pattern rules to rawText and returns whatever fields
// matched. It is a pure function: identical input yields identical output,
// and a miss on one field never aborts extraction of the others.
func Extract(rawText string) models.ExtractedFields {
	fields := models.ExtractedFields{RawText: rawText}

	fields.WeightKg = extractWeight(rawText)
	fields.MuscleMassKg = firstFloat(muscleMassRe, rawText)
	fields.FatMassKg = firstFloat(fatMassRe, rawText)
	fields.FatPercentage = firstFloat(fatPercentageRe, rawText)
	fields.BMI = firstFloat(bmiRe, rawText)
	fields.BodyScore = firstInt(bodyScoreRe, rawText)
	fields.MeasurementTimestamp = extractTimestamp(rawText)
	fields.SubjectName = firstString(subjectNameRe, rawText)
	fields.VisceralFat = firstFloat(visceralFatRe, rawText)
	fields.BodyWater = firstFloat(bodyWaterRe, rawText)
	fields.BasalMetabolismKcal = firstInt(basalRe, rawText)

	return fields
}

// extractWeight prefers an explicit "Peso ... kg" label. Failing that it
// falls back to the first bare number-plus-kg in the text that is not owned
// by another kg-labeled field.
func extractWeight(text string) *float64 {
	if v := firstFloat(weightLabeledRe, text); v != nil {
		return v
	}

	lower := strings.ToLower(text)
	for _, m := range weightBareRe.FindAllStringSubmatchIndex(text, -1) {
		if owned(lower, m[0]) {
			continue
		}
		return parseFloat(text[m[2]:m[3]])
	}
	return nil
}

// owned reports whether the kg value starting at pos sits right after one of
// the more specific kg labels. The lookback window never crosses a line
// boundary, so a labeled line does not capture the value on the next one.
func owned(lower string, pos int) bool {
	start := pos - 30
	if start < 0 {
		start = 0
	}
	window := lower[start:pos]
	if nl := strings.LastIndexByte(window, '\n'); nl >= 0 {
		window = window[nl+1:]
	}
	for _, label := range kgLabelOwners {
		if strings.Contains(window, label) {
			return true
		}
	}
	return false
}

// extractTimestamp converts the readout's DD.MM.YYYY HH:MM stamp into the
// canonical "YYYY-MM-DD HH:MM:00" form. Implausible dates (month 13 and the
// like) are rejected and the field left absent.
func extractTimestamp(text string) *string {
	m := timestampRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	t, err := time.Parse("02.01.2006 15:04", m[1])
	if err != nil {
		return nil
	}
	s := t.Format("2006-01-02 15:04:05")
	return &s
}

func firstFloat(re *regexp.Regexp, text string) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return parseFloat(m[1])
}

func firstInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func firstString(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return nil
	}
	s := m[1]
	return &s
}

// parseFloat uses standard decimal parsing; a malformed number leaves the
// field absent rather than zero.
func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
