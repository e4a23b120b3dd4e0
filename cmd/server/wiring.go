package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linnemanlabs/go-core/log"

	wc "github.com/linnemanlabs/warden/internal/cfg"
	"github.com/linnemanlabs/warden/internal/kb"
	"github.com/linnemanlabs/warden/internal/kb/pgsource"
	"github.com/linnemanlabs/warden/internal/llm/azure"
	"github.com/linnemanlabs/warden/internal/llm/claude"
	"github.com/linnemanlabs/warden/internal/llm/gemini"
	"github.com/linnemanlabs/warden/internal/postgres"
	"github.com/linnemanlabs/warden/internal/triage"
)

// newCompleter returns a nil Completer when the selected provider has no
// credentials; the engine then answers with the fallback result.
func newCompleter(ctx context.Context, c *wc.Config) (triage.Completer, error) {
	if !c.HasLLMCredentials() {
		return nil, nil
	}
	timeout := time.Duration(c.LLMTimeoutSeconds) * time.Second

	switch c.LLMProvider {
	case wc.ProviderAzure:
		return azure.New(azure.Config{
			Endpoint:   c.AzureOpenAIEndpoint,
			APIKey:     c.AzureOpenAIKey,
			Deployment: c.AzureDeployment,
			APIVersion: c.AzureAPIVersion,
			Timeout:    timeout,
		}), nil
	case wc.ProviderClaude:
		return claude.New(claude.Config{
			APIKey:  c.ClaudeAPIKey,
			Model:   c.ClaudeModel,
			Timeout: timeout,
		}), nil
	case wc.ProviderGemini:
		g, err := gemini.New(ctx, gemini.Config{
			APIKey:  c.GeminiAPIKey,
			Model:   c.GeminiModel,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", c.LLMProvider)
}

// newKBSource picks the knowledge base backend. The returned pool is nil
// unless the postgres source is used; the caller closes it.
func newKBSource(ctx context.Context, L log.Logger, c *wc.Config) (kb.Source, *pgxpool.Pool, error) {
	switch {
	case c.KBFile != "":
		L.Info(ctx, "using file knowledge base", "path", c.KBFile)
		return kb.NewFile(c.KBFile), nil, nil

	case c.KBDatabaseURL != "":
		pool, err := postgres.NewPool(ctx, c.KBDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		src, err := pgsource.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgsource init: %w", err)
		}
		defaults, _ := kb.Default().Load(ctx)
		seeded, err := src.SeedIfEmpty(ctx, defaults)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("seed knowledge base: %w", err)
		}
		L.Info(ctx, "using postgres knowledge base", "seeded", seeded)
		return src, pool, nil

	default:
		L.Info(ctx, "using embedded knowledge base")
		return kb.Default(), nil, nil
	}
}
