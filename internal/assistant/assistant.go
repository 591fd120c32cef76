package assistant

import (
	"fmt"

	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

const defaultAzureAPIVersion = "2024-05-01-preview"

func New(cfg Config) (Client, error) {
	var opts []option.RequestOption

	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}

	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}

		opts = append(opts, option.WithAPIKey(cfg.APIKey))

		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

		return newOpenAI(opts...), nil
	case "azure":
		if cfg.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure: endpoint is required")
		}

		if cfg.APIKey == "" {
			return nil, fmt.Errorf("azure: api key is required")
		}

		version := cfg.AzureAPIVersion
		if version == "" {
			version = defaultAzureAPIVersion
		}

		opts = append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, version),
			azure.WithAPIKey(cfg.APIKey),
		)

		return newOpenAI(opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// KnownProviders returns all supported provider IDs
func KnownProviders() []string {
	return []string{"openai", "azure"}
}
