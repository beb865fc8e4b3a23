package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credentials holds the contents of auth.json in the codex home: either a
// bare API key, ChatGPT OAuth tokens, or both.
type Credentials struct {
	OpenAIAPIKey string      `json:"OPENAI_API_KEY,omitempty"`
	Tokens       *AuthTokens `json:"tokens,omitempty"`
	LastRefresh  string      `json:"last_refresh,omitempty"`
}

// AuthTokens are the OAuth tokens from a ChatGPT login
type AuthTokens struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id,omitempty"`
}

// HasAPIKey reports whether an API key is configured
func (c *Credentials) HasAPIKey() bool {
	return c != nil && c.OpenAIAPIKey != ""
}

// HasTokens reports whether OAuth tokens are configured
func (c *Credentials) HasTokens() bool {
	return c != nil && c.Tokens != nil && c.Tokens.AccessToken != ""
}

// AuthMode names the credential kind in use, for status reporting
func (c *Credentials) AuthMode() string {
	switch {
	case c.HasTokens():
		return "chatgpt"
	case c.HasAPIKey():
		return "api-key"
	default:
		return "none"
	}
}

// LoadCredentials reads auth.json from the codex home. A missing file is
// not an error; it returns empty credentials.
func LoadCredentials(codexHome string) (*Credentials, error) {
	path := filepath.Join(codexHome, "auth.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(StripJSONComments(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &creds, nil
}
