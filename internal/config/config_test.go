package config

import "testing"

func TestLoadTrafficControlDefaults(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("API_RATE_LIMIT_BURST", "")
	t.Setenv("API_MAX_IN_FLIGHT", "")
	t.Setenv("API_QUEUE_WAIT_MS", "")

	cfg := Load()
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rate limit 50 rps, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIRateLimitBurst != 100 {
		t.Fatalf("expected default burst 100, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.APIMaxInFlight != 64 {
		t.Fatalf("expected default max in-flight 64, got %d", cfg.APIMaxInFlight)
	}
	if cfg.APIQueueWaitMS != 100 {
		t.Fatalf("expected default queue wait 100ms, got %d", cfg.APIQueueWaitMS)
	}
}

func TestLoadExtractionDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("OCR_MIN_CONFIDENCE", "")
	t.Setenv("EXTRACT_TOLERANCE_MINOR_UNITS", "")
	t.Setenv("EXTRACTOR_ANCHORS_PATH", "")

	cfg := Load()
	if cfg.NATSSubject != "extractions.submitted" {
		t.Fatalf("expected default subject extractions.submitted, got %q", cfg.NATSSubject)
	}
	if cfg.OCRMinConfidence != 0.3 {
		t.Fatalf("expected default confidence floor 0.3, got %v", cfg.OCRMinConfidence)
	}
	if cfg.ExtractToleranceMinorUnits != 0 {
		t.Fatalf("expected default tolerance 0, got %d", cfg.ExtractToleranceMinorUnits)
	}
	if cfg.ExtractAnchorsPath != "" {
		t.Fatalf("expected no default anchors path, got %q", cfg.ExtractAnchorsPath)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("OCR_MIN_CONFIDENCE", "0.55")
	t.Setenv("EXTRACT_TOLERANCE_MINOR_UNITS", "2")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")
	t.Setenv("WORKER_RATE_LIMIT_RPS", "2")

	cfg := Load()
	if cfg.OCRMinConfidence != 0.55 {
		t.Fatalf("expected confidence floor 0.55, got %v", cfg.OCRMinConfidence)
	}
	if cfg.ExtractToleranceMinorUnits != 2 {
		t.Fatalf("expected tolerance 2, got %d", cfg.ExtractToleranceMinorUnits)
	}
	if cfg.APIRateLimitRPS != 12.5 {
		t.Fatalf("expected rate limit 12.5 rps, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.WorkerRateLimitRPS != 2 {
		t.Fatalf("expected worker rate 2 rps, got %v", cfg.WorkerRateLimitRPS)
	}
}

func TestLoadFallsBackOnUnparsableNumbers(t *testing.T) {
	t.Setenv("OCR_MIN_CONFIDENCE", "very-sure")
	t.Setenv("API_RATE_LIMIT_BURST", "lots")

	cfg := Load()
	if cfg.OCRMinConfidence != 0.3 {
		t.Fatalf("expected fallback confidence 0.3, got %v", cfg.OCRMinConfidence)
	}
	if cfg.APIRateLimitBurst != 100 {
		t.Fatalf("expected fallback burst 100, got %d", cfg.APIRateLimitBurst)
	}
}
