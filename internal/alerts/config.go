// config.go - target configuration parsing and validation.
//
// Grounded on original_source/src/alerts/target.rs's two-stage
// TargetVerifier -> Target TryFrom conversion: raw, loosely-typed fields
// are decoded first, then validated and defaulted into a Target.

package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ConfigErrorKind classifies a configuration parse failure.
type ConfigErrorKind string

const (
	ErrBadInterval   ConfigErrorKind = "bad_interval"
	ErrZeroRetries   ConfigErrorKind = "zero_retries"
	ErrUnknownField  ConfigErrorKind = "unknown_field"
	ErrMissingField  ConfigErrorKind = "missing_field"
	ErrInvalidAuth   ConfigErrorKind = "invalid_auth"
	ErrUnknownTarget ConfigErrorKind = "unknown_target_type"
)

// ConfigError is returned by Parse/ParseYAML. It is the only error type
// the engine surfaces to its caller; everything past parse time is
// logged, not propagated.
type ConfigError struct {
	Kind  ConfigErrorKind
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alerts: config error (%s) at %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("alerts: config error (%s) at %q", e.Kind, e.Field)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(kind ConfigErrorKind, field string, err error) *ConfigError {
	return &ConfigError{Kind: kind, Field: field, Err: err}
}

// rawRepeat mirrors the wire schema's optional repeat block.
type rawRepeat struct {
	Interval *string `json:"interval,omitempty" yaml:"interval,omitempty"`
	Times    *int    `json:"times,omitempty" yaml:"times,omitempty"`
}

// rawTarget mirrors the full wire schema across all target kinds; Parse
// validates that only fields belonging to the declared "type" are set.
type rawTarget struct {
	Type         string            `json:"type" yaml:"type"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	SkipTLSCheck bool              `json:"skip_tls_check,omitempty" yaml:"skip_tls_check,omitempty"`
	Username     *string           `json:"username,omitempty" yaml:"username,omitempty"`
	Password     *string           `json:"password,omitempty" yaml:"password,omitempty"`
	Repeat       *rawRepeat        `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// allowedFields enumerates which top-level wire fields each target type
// may set, beyond "type", "endpoint" and "repeat" which are always valid.
var allowedFields = map[string]map[string]bool{
	"slack":        {},
	"webhook":      {"headers": true, "skip_tls_check": true},
	"alertmanager": {"skip_tls_check": true, "username": true, "password": true},
}

// Parse decodes a JSON-serialized target configuration into a runnable
// Target. registry and logger are wired into the Target for use by the
// repeat scheduler and the sinks' error logging.
func Parse(data []byte, registry AlertRegistry, logger *zap.SugaredLogger) (*Target, error) {
	present, err := fieldsPresent(data, false)
	if err != nil {
		return nil, err
	}
	var raw rawTarget
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, configErr(ErrMissingField, "", err)
	}
	return buildTarget(raw, present, registry, logger)
}

// ParseYAML decodes a YAML-serialized target configuration. Offered for
// parity with the teacher's viper-based config loader, which natively
// reads YAML documents.
func ParseYAML(data []byte, registry AlertRegistry, logger *zap.SugaredLogger) (*Target, error) {
	present, err := fieldsPresent(data, true)
	if err != nil {
		return nil, err
	}
	var raw rawTarget
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, configErr(ErrMissingField, "", err)
	}
	return buildTarget(raw, present, registry, logger)
}

// fieldsPresent reports which top-level keys appear in the document, so
// Parse can reject fields that don't belong to the declared target type
// even though Go's json.Unmarshal has no per-struct-variant equivalent of
// serde's #[serde(deny_unknown_fields)] on a tagged enum.
func fieldsPresent(data []byte, isYAML bool) (map[string]bool, error) {
	var generic map[string]interface{}
	var err error
	if isYAML {
		err = yaml.Unmarshal(data, &generic)
	} else {
		err = json.Unmarshal(data, &generic)
	}
	if err != nil {
		return nil, configErr(ErrMissingField, "", err)
	}
	present := make(map[string]bool, len(generic))
	for k := range generic {
		present[k] = true
	}
	return present, nil
}

func buildTarget(raw rawTarget, present map[string]bool, registry AlertRegistry, logger *zap.SugaredLogger) (*Target, error) {
	if !present["type"] {
		return nil, configErr(ErrMissingField, "type", nil)
	}
	allowed, ok := allowedFields[raw.Type]
	if !ok {
		return nil, configErr(ErrUnknownTarget, "type", fmt.Errorf("unrecognized target type %q", raw.Type))
	}
	for field := range present {
		switch field {
		case "type", "endpoint", "repeat":
			continue
		}
		if !allowed[field] {
			return nil, configErr(ErrUnknownField, field, fmt.Errorf("field %q is not valid for target type %q", field, raw.Type))
		}
	}
	if !present["endpoint"] || raw.Endpoint == "" {
		return nil, configErr(ErrMissingField, "endpoint", nil)
	}

	policy := DefaultRepeatPolicy()
	if raw.Type == "alertmanager" {
		policy.Times = RetryInfinite()
	}

	if raw.Repeat != nil {
		if raw.Repeat.Interval != nil {
			d, err := time.ParseDuration(*raw.Repeat.Interval)
			if err != nil {
				return nil, configErr(ErrBadInterval, "repeat.interval", err)
			}
			policy.Interval = d
		}
		if raw.Repeat.Times != nil {
			if *raw.Repeat.Times <= 0 {
				return nil, configErr(ErrZeroRetries, "repeat.times", nil)
			}
			policy.Times = RetryFinite(*raw.Repeat.Times)
		}
	}

	var sink Callable
	switch raw.Type {
	case "slack":
		sink = newSlackSink(SlackConfig{Endpoint: raw.Endpoint}, logger)
	case "webhook":
		sink = newWebhookSink(WebhookConfig{
			Endpoint:     raw.Endpoint,
			Headers:      raw.Headers,
			SkipTLSCheck: raw.SkipTLSCheck,
		}, logger)
	case "alertmanager":
		var auth *BasicAuth
		hasUser, hasPass := raw.Username != nil, raw.Password != nil
		if hasUser != hasPass {
			return nil, configErr(ErrInvalidAuth, "username/password", fmt.Errorf("alertmanager auth requires both username and password, or neither"))
		}
		if hasUser && hasPass {
			auth = &BasicAuth{Username: *raw.Username, Password: *raw.Password}
		}
		sink = newAlertmanagerSink(AlertmanagerConfig{
			Endpoint:     raw.Endpoint,
			SkipTLSCheck: raw.SkipTLSCheck,
			Auth:         auth,
		}, logger)
	}

	return NewTarget(sink, policy, registry, logger), nil
}
