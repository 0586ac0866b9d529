// Package config loads and validates per-connector settings: the gateway
// base URL, the credential triple, and the integration knobs that the
// original hardwired (notification URL fallback, 3-DS force flag).
// Documents are checked against a JSON schema before unmarshalling so a
// malformed settings file fails loudly at startup, not mid-payment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/yourorg/payment-connectors/internal/connector"
)

const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["connectors"],
  "properties": {
    "connectors": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["base_url", "login", "trans_key", "signing_secret"],
        "properties": {
          "base_url": {"type": "string", "format": "uri", "minLength": 1},
          "login": {"type": "string", "minLength": 1},
          "trans_key": {"type": "string", "minLength": 1},
          "signing_secret": {"type": "string", "minLength": 1},
          "notification_url": {"type": "string", "format": "uri"},
          "force_three_dsecure": {"type": "boolean"}
        }
      }
    }
  }
}`

// GatewaySettings holds one connector's deployment settings.
type GatewaySettings struct {
	BaseURL           string `json:"base_url"`
	Login             string `json:"login"`
	TransKey          string `json:"trans_key"`
	SigningSecret     string `json:"signing_secret"`
	NotificationURL   string `json:"notification_url"`
	ForceThreeDSecure bool   `json:"force_three_dsecure"`
}

// Auth returns the credential bundle in the polymorphic form connectors
// resolve at call time.
func (g GatewaySettings) Auth() connector.AuthType {
	return connector.SignatureKeyAuth{
		APIKey:    g.Login,
		Key1:      g.TransKey,
		APISecret: g.SigningSecret,
	}
}

// Settings is the full connector settings document.
type Settings struct {
	Connectors map[string]GatewaySettings `json:"connectors"`
}

// Gateway returns the settings for one connector by name.
func (s *Settings) Gateway(name string) (GatewaySettings, error) {
	gw, ok := s.Connectors[name]
	if !ok {
		return GatewaySettings{}, fmt.Errorf("config: no settings for connector %q", name)
	}
	return gw, nil
}

// Validate checks a raw settings document against the schema. It returns
// all violations at once rather than the first one found.
func Validate(doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(settingsSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("config: validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return fmt.Errorf("config: invalid settings: %s", strings.Join(violations, "; "))
}

// Parse validates and unmarshals a raw settings document.
func Parse(doc []byte) (*Settings, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	var settings Settings
	if err := json.Unmarshal(doc, &settings); err != nil {
		return nil, fmt.Errorf("config: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Load reads, validates, and unmarshals the settings file at path.
func Load(path string) (*Settings, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(doc)
}
