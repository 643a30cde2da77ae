package provider

import "maps"

// Spec selects and configures one provider for one capability.
type Spec struct {
	Provider      string         `yaml:"provider" json:"provider" mapstructure:"provider" validate:"required"`
	Model         string         `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`
	CredentialRef string         `yaml:"credential_ref,omitempty" json:"credential_ref,omitempty" mapstructure:"credential_ref"`
	APIKey        string         `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`
	APIURL        string         `yaml:"api_url,omitempty" json:"api_url,omitempty" mapstructure:"api_url" validate:"omitempty,url"`
	Voice         string         `yaml:"voice,omitempty" json:"voice,omitempty" mapstructure:"voice"`
	Temperature   *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens     int            `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens" validate:"gte=0"`
	Extra         map[string]any `yaml:"extra,omitempty" json:"extra,omitempty" mapstructure:"extra"`
}

// Merge returns s overlaid with the non-zero fields of over. When over names
// a different provider, the provider-specific fields of s (model, credential,
// endpoint, voice, extra) are dropped before overlaying.
func (s Spec) Merge(over Spec) Spec {
	out := s
	if over.Provider != "" && over.Provider != s.Provider {
		out = Spec{
			Provider:    over.Provider,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
		}
	}
	if over.Model != "" {
		out.Model = over.Model
	}
	if over.CredentialRef != "" {
		out.CredentialRef = over.CredentialRef
	}
	if over.APIKey != "" {
		out.APIKey = over.APIKey
	}
	if over.APIURL != "" {
		out.APIURL = over.APIURL
	}
	if over.Voice != "" {
		out.Voice = over.Voice
	}
	if over.Temperature != nil {
		t := *over.Temperature
		out.Temperature = &t
	}
	if over.MaxTokens != 0 {
		out.MaxTokens = over.MaxTokens
	}
	if len(over.Extra) > 0 {
		merged := make(map[string]any, len(out.Extra)+len(over.Extra))
		maps.Copy(merged, out.Extra)
		maps.Copy(merged, over.Extra)
		out.Extra = merged
	} else if out.Extra != nil {
		out.Extra = maps.Clone(out.Extra)
	}
	return out
}

// IsZero reports whether no field is set.
func (s Spec) IsZero() bool {
	return s.Provider == "" && s.Model == "" && s.CredentialRef == "" && s.APIKey == "" &&
		s.APIURL == "" && s.Voice == "" && s.Temperature == nil && s.MaxTokens == 0 && len(s.Extra) == 0
}

// Credential returns the API key for the spec. A literal APIKey wins;
// otherwise the variable named by CredentialRef, or defaultRef when the
// reference is empty, is looked up.
func (s Spec) Credential(lookup func(string) (string, bool), defaultRef string) (string, bool) {
	if s.APIKey != "" {
		return s.APIKey, true
	}
	ref := s.CredentialRef
	if ref == "" {
		ref = defaultRef
	}
	if ref == "" || lookup == nil {
		return "", false
	}
	v, ok := lookup(ref)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Redacted returns a copy safe to print or log.
func (s Spec) Redacted() Spec {
	out := s
	if out.APIKey != "" {
		out.APIKey = "***"
	}
	return out
}

// TemperatureOr returns the configured temperature or def.
func (s Spec) TemperatureOr(def float64) float64 {
	if s.Temperature == nil {
		return def
	}
	return *s.Temperature
}

// ExtraString returns a string extra parameter.
func (s Spec) ExtraString(key string) (string, bool) {
	v, ok := s.Extra[key].(string)
	return v, ok
}

// ExtraFloat returns a numeric extra parameter as float64.
func (s Spec) ExtraFloat(key string) (float64, bool) {
	switch v := s.Extra[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Float64 returns a pointer to v, for building specs with a temperature.
func Float64(v float64) *float64 { return &v }
