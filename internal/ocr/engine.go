package ocr

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/singleflight"

	"github.com/nutriclinica/inbody-ocr-service/internal/models"
)

// charWhitelist restricts tesseract to the characters that appear on an
// InBody readout: digits, measurement punctuation and the Latin alphabet
// including Spanish accented letters.
const charWhitelist = "0123456789.,:%/()- " +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"áéíóúñÁÉÍÓÚÑ"

// DefaultRecognizeTimeout bounds a single recognition call
const DefaultRecognizeTimeout = 30 * time.Second

// Engine is the long-lived adapter around the tesseract engine. The
// underlying client is expensive to initialize (language models, whitelist),
// so it is created at most once per process and reused across calls.
// Recognition requests are serialized; the engine handles one image at a
// time. Shutdown must be called on process termination.
type Engine struct {
	language string
	timeout  time.Duration

	initGroup singleflight.Group

	mu     sync.Mutex
	client *gosseract.Client
	closed bool
}

// NewEngine creates the recognition adapter. The tesseract client itself is
// initialized lazily on the first Recognize call.
func NewEngine(language string, timeout time.Duration) *Engine {
	if language == "" {
		language = "spa"
	}
	if timeout <= 0 {
		timeout = DefaultRecognizeTimeout
	}
	return &Engine{language: language, timeout: timeout}
}

// init creates and configures the tesseract client. Guarded by singleflight
// so concurrent first calls never trigger duplicate initialization.
func (e *Engine) init() error {
	_, err, _ := e.initGroup.Do("init", func() (interface{}, error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return nil, &EngineError{Op: "init", Err: ErrEngineClosed}
		}
		if e.client != nil {
			return nil, nil
		}

		client := gosseract.NewClient()
		if err := client.SetLanguage(e.language); err != nil {
			client.Close()
			return nil, &EngineError{Op: "init", Err: err}
		}
		if err := client.SetVariable("tessedit_char_whitelist", charWhitelist); err != nil {
			client.Close()
			return nil, &EngineError{Op: "init", Err: err}
		}
		if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
			client.Close()
			return nil, &EngineError{Op: "init", Err: err}
		}

		e.client = client
		log.Printf("[OCR] tesseract engine initialized (language=%s)", e.language)
		return nil, nil
	})
	return err
}

// Recognize runs OCR on the image at path and returns the raw text plus the
// overall recognition confidence (mean word confidence, 0-100). It fails
// with an EngineError when the engine cannot initialize, has been shut down,
// or the call exceeds the configured timeout.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (*models.RecognitionResult, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, &EngineError{Op: "recognize", Err: ErrEngineClosed}
	}
	e.mu.Unlock()

	if err := e.init(); err != nil {
		return nil, err
	}

	type recognition struct {
		result *models.RecognitionResult
		err    error
	}
	done := make(chan recognition, 1)

	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			done <- recognition{err: &EngineError{Op: "recognize", Err: ErrEngineClosed}}
			return
		}
		res, err := e.recognizeLocked(imagePath)
		done <- recognition{result: res, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.result, r.err
	case <-ctx.Done():
		return nil, &EngineError{Op: "recognize", Err: ctx.Err()}
	case <-timer.C:
		return nil, &EngineError{Op: "recognize", Err: ErrRecognitionTimeout}
	}
}

// recognizeLocked performs the actual tesseract call. Caller holds e.mu.
func (e *Engine) recognizeLocked(imagePath string) (*models.RecognitionResult, error) {
	if err := e.client.SetImage(imagePath); err != nil {
		return nil, &EngineError{Op: "recognize", Err: err}
	}

	text, err := e.client.Text()
	if err != nil {
		return nil, &EngineError{Op: "recognize", Err: err}
	}

	confidence := e.meanWordConfidence()

	return &models.RecognitionResult{
		RawText:           text,
		ConfidenceOverall: confidence,
	}, nil
}

// meanWordConfidence averages per-word confidences for the current image.
// Returns 0 when tesseract found no words at all.
func (e *Engine) meanWordConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	mean := sum / float64(len(boxes))
	if mean < 0 {
		mean = 0
	}
	if mean > 100 {
		mean = 100
	}
	return mean
}

// Shutdown releases the tesseract client. Idempotent; any Recognize call
// after Shutdown fails fast with ErrEngineClosed.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		if err != nil {
			return &EngineError{Op: "shutdown", Err: err}
		}
		log.Println("[OCR] tesseract engine shut down")
	}
	return nil
}
