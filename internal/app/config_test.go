package app

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QUIZ_QUESTION_COUNT", "")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("AI_SERVICE_TIMEOUT_SECONDS", "12")

	cfg := LoadConfig()
	if cfg.Port != "8080" {
		t.Fatalf("port: want=8080 got=%s", cfg.Port)
	}
	if cfg.QuizQuestionCount != 5 {
		t.Fatalf("quiz count: want=5 got=%d", cfg.QuizQuestionCount)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins: got=%v", cfg.CORSOrigins)
	}
	if cfg.AIService.Timeout.Seconds() != 12 {
		t.Fatalf("ai timeout: want=12s got=%s", cfg.AIService.Timeout)
	}
}
