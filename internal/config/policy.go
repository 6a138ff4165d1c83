package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
)

// DetectionPolicy is the tunable part of the detection rules, in seconds
type DetectionPolicy struct {
	FocusThresholdSeconds       float64 `yaml:"focus_threshold_seconds" validate:"gt=0"`
	FaceAbsenceThresholdSeconds float64 `yaml:"face_absence_threshold_seconds" validate:"gt=0"`
	ObjectFallbackCategory      string  `yaml:"object_fallback_category" validate:"oneof=device_detected other"`
}

// LoadDetectionPolicy starts from the defaults, applies the detection env keys and then
// the YAML file at path when one is given. The result is validated.
func LoadDetectionPolicy(path string) (DetectionPolicy, error) {
	policy := DetectionPolicy{
		FocusThresholdSeconds:       getEnvFloat("FOCUS_THRESHOLD_SECONDS", proctoring.DefaultFocusThreshold.Seconds()),
		FaceAbsenceThresholdSeconds: getEnvFloat("FACE_ABSENCE_THRESHOLD_SECONDS", proctoring.DefaultFaceAbsenceThreshold.Seconds()),
		ObjectFallbackCategory:      getEnv("OBJECT_FALLBACK_CATEGORY", string(proctoring.DefaultObjectFallback)),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return DetectionPolicy{}, fmt.Errorf("failed to read detection policy %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &policy); err != nil {
			return DetectionPolicy{}, fmt.Errorf("failed to parse detection policy %s: %w", path, err)
		}
	}

	if err := policy.Validate(); err != nil {
		return DetectionPolicy{}, err
	}
	return policy, nil
}

// Validate checks the policy as written and again after conversion, since a positive
// threshold below one nanosecond truncates to a zero Duration.
func (p DetectionPolicy) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid detection policy: %w", err)
	}
	if err := p.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid detection policy: %w", err)
	}
	return nil
}

// EngineConfig converts the policy into the per-session engine configuration
func (p DetectionPolicy) EngineConfig() proctoring.Config {
	return proctoring.Config{
		FocusThreshold:       seconds(p.FocusThresholdSeconds),
		FaceAbsenceThreshold: seconds(p.FaceAbsenceThresholdSeconds),
		ObjectFallback:       models.ProctoringEventType(p.ObjectFallbackCategory),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
