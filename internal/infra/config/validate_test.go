package config

import (
	"strings"
	"testing"
)

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Router.WorkloadPolicy = "aggressive"
	cfg.Embedding.Provider = "openai" // no api_key
	cfg.Storage.TasksPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
	msg := err.Error()
	for _, want := range []string{"workload_policy", "api_key", "tasks_path"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}
}

func TestValidateStaticAuthNeedsTokens(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Auth.Type = "static"
	if err := Validate(cfg); err == nil {
		t.Fatal("static auth without tokens must fail")
	}

	cfg.Gateway.Auth.Tokens = []TokenConfig{{Token: "x", Name: "a"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDisabledGatewaySkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Enabled = false
	cfg.Gateway.Addr = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled gateway must not be validated: %v", err)
	}
}

func TestValidateLearningBounds(t *testing.T) {
	cfg := Default()
	cfg.Router.Learning.FloorWeight = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("floor above 1 must fail")
	}

	cfg = Default()
	cfg.Router.Learning.Enabled = false
	cfg.Router.Learning.FloorWeight = 1.5
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled learning must not be validated: %v", err)
	}
}

func TestValidateMinConfidenceRange(t *testing.T) {
	cfg := Default()
	cfg.Router.MinConfidence = 1.5
	if err := Validate(cfg); err == nil {
		t.Fatal("min_confidence above 1 must fail")
	}
}
