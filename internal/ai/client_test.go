package ai

import "testing"

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		proxyURL string
		wantErr  bool
	}{
		{"no proxy", "", false},
		{"http proxy", "http://proxy.example.com:8080", false},
		{"https proxy", "https://proxy.example.com:8443", false},
		{"socks proxy rejected", "socks5://proxy.example.com:1080", true},
		{"garbage proxy", "://not-a-url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient("test-key", "claude-sonnet-4-20250514", tt.proxyURL, 120, 8000)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if client.GetProviderName() != "Anthropic" {
				t.Errorf("GetProviderName() = %q", client.GetProviderName())
			}
			info := client.GetModelInfo()
			if info["provider"] != "Anthropic" {
				t.Errorf("model info provider = %v", info["provider"])
			}
		})
	}
}
