package llm

import (
	"testing"

	"docassist/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		wantType string
		wantErr  bool
	}{
		{
			name: "openai provider",
			cfg: &config.Config{
				Provider:      config.ProviderOpenAI,
				OpenAIBaseURL: "https://api.deepseek.com/v1",
				OpenAIAPIKey:  "test-key",
				GenModel:      "deepseek-chat",
				EmbedModel:    "text-embedding-3-small",
				ProviderRPS:   5,
			},
			wantType: "openai",
		},
		{
			name: "ollama provider",
			cfg: &config.Config{
				Provider:      config.ProviderOllama,
				OllamaBaseURL: "http://localhost:11434",
				GenModel:      "llama3",
				EmbedModel:    "nomic-embed-text",
				ProviderRPS:   5,
			},
			wantType: "ollama",
		},
		{
			name:    "unknown provider",
			cfg:     &config.Config{Provider: "anthropic"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)

			if tt.wantErr {
				if err == nil {
					t.Errorf("New() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}

			switch tt.wantType {
			case "openai":
				if _, ok := client.(*OpenAIClient); !ok {
					t.Errorf("New() returned %T, want *OpenAIClient", client)
				}
			case "ollama":
				if _, ok := client.(*OllamaClient); !ok {
					t.Errorf("New() returned %T, want *OllamaClient", client)
				}
			}
		})
	}
}
