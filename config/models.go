package config

// ModelDefinition describes one model the agent runtime can run
type ModelDefinition struct {
	Model         string `json:"model"`
	DisplayName   string `json:"displayName"`
	DefaultEffort string `json:"defaultEffort,omitempty"`
}

// ModelRegistry holds model definitions keyed by shorthand name
type ModelRegistry struct {
	Models map[string]ModelDefinition `json:"models"`
}

// DefaultModelRegistry returns the built-in shorthand table
func DefaultModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		Models: map[string]ModelDefinition{
			"gpt-5-codex": {
				Model:         "gpt-5-codex",
				DisplayName:   "GPT-5 Codex",
				DefaultEffort: "medium",
			},
			"gpt-5": {
				Model:         "gpt-5",
				DisplayName:   "GPT-5",
				DefaultEffort: "medium",
			},
			"high": {
				Model:         "gpt-5-codex",
				DisplayName:   "GPT-5 Codex (high effort)",
				DefaultEffort: "high",
			},
			"mini": {
				Model:         "gpt-5-mini",
				DisplayName:   "GPT-5 Mini",
				DefaultEffort: "low",
			},
		},
	}
}

// GetModel returns a model definition by shorthand name
func (r *ModelRegistry) GetModel(name string) (ModelDefinition, bool) {
	model, ok := r.Models[name]
	return model, ok
}

// HasModel checks if a shorthand exists in the registry
func (r *ModelRegistry) HasModel(name string) bool {
	_, ok := r.Models[name]
	return ok
}

// ResolveModel resolves a shorthand to the full model ID. Names not in the
// registry are assumed to already be full IDs and pass through unchanged.
func (r *ModelRegistry) ResolveModel(name string) string {
	if model, ok := r.Models[name]; ok {
		return model.Model
	}
	return name
}

// ResolveEffort returns the effort to use for a model shorthand: the
// caller's explicit choice when given, otherwise the registry default,
// otherwise empty so the runtime picks.
func (r *ModelRegistry) ResolveEffort(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if model, ok := r.Models[name]; ok {
		return model.DefaultEffort
	}
	return ""
}

// ListModels returns the shorthand names in the registry
func (r *ModelRegistry) ListModels() []string {
	names := make([]string, 0, len(r.Models))
	for name := range r.Models {
		names = append(names, name)
	}
	return names
}
