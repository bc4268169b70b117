package instrumentation

import "testing"

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"admin@company.org", "company.org"},
		{"test@subdomain.example.com", "subdomain.example.com"},
		{"invalid", "unknown"},
		{"", "unknown"},
		{"@", "unknown"},
		{"user@", "unknown"},
		{"@domain.com", "domain.com"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := ExtractUserDomain(tt.email)
			if result != tt.expected {
				t.Errorf("ExtractUserDomain(%q) = %q, want %q", tt.email, result, tt.expected)
			}
		})
	}
}

func TestNormalizeMethodName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Mailbox/get", "Mailbox/get"},
		{"Email/queryChanges", "Email/queryChanges"},
		{"EmailSubmission/set", "EmailSubmission/set"},
		{"Core/echo", "Core/echo"},
		{"Email/frobnicate", MethodOther},
		{"Email", MethodOther},
		{"/get", MethodOther},
		{"Em ail/get", MethodOther},
		{"", MethodOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMethodName(tt.name); got != tt.expected {
				t.Errorf("NormalizeMethodName(%q) = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}
