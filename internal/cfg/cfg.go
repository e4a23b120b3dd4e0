package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
)

// Supported completion providers.
const (
	ProviderAzure  = "azure"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Env vars read as-is (no WARDEN_ prefix) so existing deployments keep working.
const (
	EnvAzureOpenAIKey      = "AZURE_OPENAI_KEY"
	EnvAzureOpenAIEndpoint = "AZURE_OPENAI_ENDPOINT"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	LLMProvider       string
	LLMTimeoutSeconds int

	AzureOpenAIKey      string
	AzureOpenAIEndpoint string
	AzureDeployment     string
	AzureAPIVersion     string

	ClaudeAPIKey string
	ClaudeModel  string

	GeminiAPIKey string
	GeminiModel  string

	KBFile        string
	KBDatabaseURL string

	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on triage routes (empty = no auth)")
	fs.StringVar(&c.LLMProvider, "llm-provider", ProviderAzure, "completion provider: azure, claude or gemini")
	fs.IntVar(&c.LLMTimeoutSeconds, "llm-timeout-seconds", 20, "timeout for a single completion call (1..300)")
	fs.StringVar(&c.AzureOpenAIKey, "azure-openai-key", "", "Azure OpenAI API key (falls back to AZURE_OPENAI_KEY)")
	fs.StringVar(&c.AzureOpenAIEndpoint, "azure-openai-endpoint", "", "Azure OpenAI resource endpoint (falls back to AZURE_OPENAI_ENDPOINT)")
	fs.StringVar(&c.AzureDeployment, "azure-deployment", "incident-poc", "Azure OpenAI deployment name")
	fs.StringVar(&c.AzureAPIVersion, "azure-api-version", "2024-02-15-preview", "Azure OpenAI api-version query parameter")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.GeminiAPIKey, "gemini-api-key", "", "API key for the Gemini provider")
	fs.StringVar(&c.GeminiModel, "gemini-model", "gemini-2.0-flash", "Gemini model to use")
	fs.StringVar(&c.KBFile, "kb-file", "", "path to a JSON knowledge base file read on every request (empty = embedded)")
	fs.StringVar(&c.KBDatabaseURL, "kb-database-url", "", "PostgreSQL URL holding the incident_kb table (empty = embedded)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for major incident notifications")
}

// FillAzureFromEnv copies the legacy AZURE_OPENAI_* variables into unset fields.
func (c *Config) FillAzureFromEnv(getenv func(string) string) {
	if c.AzureOpenAIKey == "" {
		c.AzureOpenAIKey = getenv(EnvAzureOpenAIKey)
	}
	if c.AzureOpenAIEndpoint == "" {
		c.AzureOpenAIEndpoint = getenv(EnvAzureOpenAIEndpoint)
	}
}

// HasLLMCredentials reports whether the selected provider has enough
// configuration to make a call. When false the service answers with the
// fallback triage result instead of failing.
func (c *Config) HasLLMCredentials() bool {
	switch c.LLMProvider {
	case ProviderAzure:
		return c.AzureOpenAIKey != "" && c.AzureOpenAIEndpoint != ""
	case ProviderClaude:
		return c.ClaudeAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	}
	return false
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.LLMTimeoutSeconds <= 0 || c.LLMTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS %d (must be 1..300)", c.LLMTimeoutSeconds))
	}

	switch c.LLMProvider {
	case ProviderAzure:
		if c.AzureDeployment == "" {
			errs = append(errs, errors.New("AZURE_DEPLOYMENT is required"))
		}
		if c.AzureAPIVersion == "" {
			errs = append(errs, errors.New("AZURE_API_VERSION is required"))
		}
		if c.AzureOpenAIEndpoint != "" {
			if err := validateHTTPURL(c.AzureOpenAIEndpoint); err != nil {
				errs = append(errs, fmt.Errorf("invalid AZURE_OPENAI_ENDPOINT: %w", err))
			}
		}
	case ProviderClaude:
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required"))
		}
	case ProviderGemini:
		if c.GeminiModel == "" {
			errs = append(errs, errors.New("GEMINI_MODEL is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid LLM_PROVIDER %q (must be azure, claude or gemini)", c.LLMProvider))
	}

	// only one knowledge base source may be selected
	if c.KBFile != "" && c.KBDatabaseURL != "" {
		errs = append(errs, errors.New("KB_FILE and KB_DATABASE_URL are mutually exclusive"))
	}

	if c.SlackWebhookURL != "" {
		if err := validateHTTPURL(c.SlackWebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid SLACK_WEBHOOK_URL: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("host is required")
	}
	return nil
}
