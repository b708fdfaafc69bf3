package errors

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E100",
			wantMsg: "No gatewire.json found",
			wantCat: CategoryConfig,
		},
		{
			name:    "gateway error",
			code:    "E110",
			wantMsg: "Gateway URL resolution failed",
			wantCat: CategoryGateway,
		},
		{
			name:    "auth error",
			code:    "E120",
			wantMsg: "Authentication failed",
			wantCat: CategoryAuth,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "flag %q not recognized", "--shard")
	if err.Message != `flag "--shard" not recognized` {
		t.Errorf("Message = %q, want %q", err.Message, `flag "--shard" not recognized`)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestGatewireError_Error(t *testing.T) {
	err := New("E103")
	got := err.Error()
	want := "E103: Bot token missing"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// Without code
	err2 := &GatewireError{Message: "test error"}
	if err2.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", err2.Error(), "test error")
	}
}

func TestGatewireError_WithSuggestion(t *testing.T) {
	err := New("E103").WithSuggestion("Set GATEWIRE_TOKEN")
	if err.Suggestion != "Set GATEWIRE_TOKEN" {
		t.Errorf("Suggestion = %q, want %q", err.Suggestion, "Set GATEWIRE_TOKEN")
	}
}

func TestGatewireError_WithDetail(t *testing.T) {
	err := New("E100").WithDetail("Custom detail")
	if err.Detail != "Custom detail" {
		t.Errorf("Detail = %q, want %q", err.Detail, "Custom detail")
	}
}

func TestGatewireError_Wrap(t *testing.T) {
	inner := New("E110")
	outer := New("E111").Wrap(inner)

	if outer.Wrapped != inner {
		t.Error("Wrapped error mismatch")
	}
	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
}

func TestFromError(t *testing.T) {
	// nil error
	if FromError(nil, "E110") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	// Already GatewireError
	ge := New("E110")
	if FromError(ge, "E111") != ge {
		t.Error("FromError should return GatewireError as-is")
	}

	// Standard error
	stdErr := &testError{msg: "test error"}
	result := FromError(stdErr, "E110")
	if result.Wrapped != stdErr {
		t.Error("Standard error should be wrapped")
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E103").
		WithSuggestion("Set GATEWIRE_TOKEN or add a token field to gatewire.json").
		Wrap(&testError{msg: "read gatewire.json: no such file"})

	formatted := err.Format()

	// Check that key components are present
	if !strings.Contains(formatted, "E103") {
		t.Error("Format should contain error code")
	}
	if !strings.Contains(formatted, "Bot token missing") {
		t.Error("Format should contain error message")
	}
	if !strings.Contains(formatted, "Cause:") {
		t.Error("Format should contain the wrapped cause")
	}
	if !strings.Contains(formatted, "Hint:") {
		t.Error("Format should contain hint")
	}
	if !strings.Contains(formatted, "Learn more:") {
		t.Error("Format should contain doc URL")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E120")
	compact := err.FormatCompact()

	want := "E120: Authentication failed"
	if compact != want {
		t.Errorf("FormatCompact() = %q, want %q", compact, want)
	}

	withCause := New("E110").Wrap(&testError{msg: "dial tcp: timeout"})
	want = "E110: Gateway URL resolution failed: dial tcp: timeout"
	if got := withCause.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E103")
	json := err.FormatJSON()

	if !strings.Contains(json, `"code":"E103"`) {
		t.Error("JSON should contain code")
	}
	if !strings.Contains(json, `"category":"config"`) {
		t.Error("JSON should contain category")
	}
	if !strings.Contains(json, `"message":"Bot token missing"`) {
		t.Error("JSON should contain message")
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Error("GetAllCodes() should return codes")
	}

	// Check that E100 is in the list
	found := false
	for _, code := range codes {
		if code == "E100" {
			found = true
			break
		}
	}
	if !found {
		t.Error("E100 should be in the codes list")
	}
}

func TestGetTemplate(t *testing.T) {
	template, ok := GetTemplate("E100")
	if !ok {
		t.Error("E100 should exist")
	}
	if template.Message != "No gatewire.json found" {
		t.Error("Template message mismatch")
	}

	_, ok = GetTemplate("E999")
	if ok {
		t.Error("E999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("E999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
		Detail:   "This is a test error",
		DocURL:   "https://test.dev/E999",
	})

	err := New("E999")
	if err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}

	// Cleanup
	delete(registry, "E999")
}

func TestWrapText(t *testing.T) {
	// Test short text that doesn't need wrapping
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	// Test text that needs wrapping
	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	// Test empty string returns empty/nil
	got = wrapText("", 10)
	if len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorFunctions(t *testing.T) {
	// With colors enabled
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	// With colors disabled
	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
