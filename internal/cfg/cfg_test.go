package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		LLMProvider:           ProviderAzure,
		LLMTimeoutSeconds:     20,
		AzureDeployment:       "incident-poc",
		AzureAPIVersion:       "2024-02-15-preview",
		ClaudeModel:           "claude-sonnet-4-20250514",
		GeminiModel:           "gemini-2.0-flash",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.LLMProvider != ProviderAzure {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderAzure)
	}
	if c.LLMTimeoutSeconds != 20 {
		t.Errorf("LLMTimeoutSeconds = %d, want 20", c.LLMTimeoutSeconds)
	}
	if c.AzureDeployment != "incident-poc" {
		t.Errorf("AzureDeployment = %q, want %q", c.AzureDeployment, "incident-poc")
	}
	if c.AzureAPIVersion != "2024-02-15-preview" {
		t.Errorf("AzureAPIVersion = %q, want %q", c.AzureAPIVersion, "2024-02-15-preview")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate, got: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-http-port", "9090",
		"-llm-provider", "claude",
		"-llm-timeout-seconds", "5",
		"-claude-api-key", "sk-override",
		"-kb-file", "/etc/warden/incident_kb.json",
		"-api-token", "tok",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.LLMProvider != ProviderClaude {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderClaude)
	}
	if c.LLMTimeoutSeconds != 5 {
		t.Errorf("LLMTimeoutSeconds = %d, want 5", c.LLMTimeoutSeconds)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.KBFile != "/etc/warden/incident_kb.json" {
		t.Errorf("KBFile = %q", c.KBFile)
	}
	if c.APIToken != "tok" {
		t.Errorf("APIToken = %q, want %q", c.APIToken, "tok")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "drain zero", mutate: func(c *Config) { c.DrainSeconds = 0 }, wantErr: true, errSubstr: []string{"DRAIN_SECONDS"}},
		{name: "drain above max", mutate: func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 }, wantErr: true, errSubstr: []string{"DRAIN_SECONDS"}},
		{name: "budget equals drain", mutate: func(c *Config) { c.ShutdownBudgetSeconds = 60 }, wantErr: true, errSubstr: []string{"must be greater than"}},
		{name: "budget is drain plus one", mutate: func(c *Config) { c.ShutdownBudgetSeconds = 61 }},
		{name: "port zero", mutate: func(c *Config) { c.APIPort = 0 }, wantErr: true, errSubstr: []string{"HTTP_PORT"}},
		{name: "port above max", mutate: func(c *Config) { c.APIPort = 65536 }, wantErr: true, errSubstr: []string{"HTTP_PORT"}},
		{name: "port at max", mutate: func(c *Config) { c.APIPort = 65535 }},
		{name: "timeout zero", mutate: func(c *Config) { c.LLMTimeoutSeconds = 0 }, wantErr: true, errSubstr: []string{"LLM_TIMEOUT_SECONDS"}},
		{name: "timeout above max", mutate: func(c *Config) { c.LLMTimeoutSeconds = 301 }, wantErr: true, errSubstr: []string{"LLM_TIMEOUT_SECONDS"}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "bedrock" }, wantErr: true, errSubstr: []string{"LLM_PROVIDER"}},
		{name: "empty provider", mutate: func(c *Config) { c.LLMProvider = "" }, wantErr: true, errSubstr: []string{"LLM_PROVIDER"}},
		{name: "azure without deployment", mutate: func(c *Config) { c.AzureDeployment = "" }, wantErr: true, errSubstr: []string{"AZURE_DEPLOYMENT"}},
		{name: "azure without api version", mutate: func(c *Config) { c.AzureAPIVersion = "" }, wantErr: true, errSubstr: []string{"AZURE_API_VERSION"}},
		{name: "azure endpoint bad scheme", mutate: func(c *Config) { c.AzureOpenAIEndpoint = "ftp://example.com" }, wantErr: true, errSubstr: []string{"AZURE_OPENAI_ENDPOINT"}},
		{name: "azure endpoint no host", mutate: func(c *Config) { c.AzureOpenAIEndpoint = "https://" }, wantErr: true, errSubstr: []string{"AZURE_OPENAI_ENDPOINT"}},
		{name: "azure endpoint valid", mutate: func(c *Config) { c.AzureOpenAIEndpoint = "https://res.openai.azure.com" }},
		{name: "azure credentials absent is valid", mutate: func(c *Config) { c.AzureOpenAIKey = ""; c.AzureOpenAIEndpoint = "" }},
		{name: "claude without model", mutate: func(c *Config) { c.LLMProvider = ProviderClaude; c.ClaudeModel = "" }, wantErr: true, errSubstr: []string{"CLAUDE_MODEL"}},
		{name: "gemini without model", mutate: func(c *Config) { c.LLMProvider = ProviderGemini; c.GeminiModel = "" }, wantErr: true, errSubstr: []string{"GEMINI_MODEL"}},
		{name: "both kb sources", mutate: func(c *Config) { c.KBFile = "kb.json"; c.KBDatabaseURL = "postgres://x" }, wantErr: true, errSubstr: []string{"mutually exclusive"}},
		{name: "bad slack url", mutate: func(c *Config) { c.SlackWebhookURL = "hooks.slack.com/x" }, wantErr: true, errSubstr: []string{"SLACK_WEBHOOK_URL"}},
		{
			name:      "multiple errors joined",
			mutate:    func(c *Config) { c.APIPort = 0; c.LLMProvider = "nope" },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT", "LLM_PROVIDER"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)
			err := c.Validate()

			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, sub := range tt.errSubstr {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q missing substring %q", err, sub)
				}
			}
		})
	}
}

func TestFillAzureFromEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvAzureOpenAIKey:      "env-key",
		EnvAzureOpenAIEndpoint: "https://env.openai.azure.com",
	}
	getenv := func(k string) string { return env[k] }

	t.Run("fills empty fields", func(t *testing.T) {
		t.Parallel()
		var c Config
		c.FillAzureFromEnv(getenv)
		if c.AzureOpenAIKey != "env-key" {
			t.Errorf("AzureOpenAIKey = %q, want %q", c.AzureOpenAIKey, "env-key")
		}
		if c.AzureOpenAIEndpoint != "https://env.openai.azure.com" {
			t.Errorf("AzureOpenAIEndpoint = %q", c.AzureOpenAIEndpoint)
		}
	})

	t.Run("does not override flags", func(t *testing.T) {
		t.Parallel()
		c := Config{AzureOpenAIKey: "flag-key", AzureOpenAIEndpoint: "https://flag"}
		c.FillAzureFromEnv(getenv)
		if c.AzureOpenAIKey != "flag-key" {
			t.Errorf("AzureOpenAIKey = %q, want %q", c.AzureOpenAIKey, "flag-key")
		}
		if c.AzureOpenAIEndpoint != "https://flag" {
			t.Errorf("AzureOpenAIEndpoint = %q, want %q", c.AzureOpenAIEndpoint, "https://flag")
		}
	})
}

func TestHasLLMCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"azure key and endpoint", Config{LLMProvider: ProviderAzure, AzureOpenAIKey: "k", AzureOpenAIEndpoint: "https://e"}, true},
		{"azure key only", Config{LLMProvider: ProviderAzure, AzureOpenAIKey: "k"}, false},
		{"azure endpoint only", Config{LLMProvider: ProviderAzure, AzureOpenAIEndpoint: "https://e"}, false},
		{"claude key", Config{LLMProvider: ProviderClaude, ClaudeAPIKey: "k"}, true},
		{"claude without key", Config{LLMProvider: ProviderClaude, AzureOpenAIKey: "k", AzureOpenAIEndpoint: "https://e"}, false},
		{"gemini key", Config{LLMProvider: ProviderGemini, GeminiAPIKey: "k"}, true},
		{"unknown provider", Config{LLMProvider: "other", ClaudeAPIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.HasLLMCredentials(); got != tt.want {
				t.Errorf("HasLLMCredentials() = %v, want %v", got, tt.want)
			}
		})
	}
}
