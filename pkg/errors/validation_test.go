package errors

import (
	"testing"
)

func TestValidateDocumentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "notes", false},
		{"valid with dash", "project-plan", false},
		{"valid with underscore", "q3_review", false},
		{"valid with dot", "board.v2", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 200)), true},
		{"path traversal", "a..b", true},
		{"slash", "dir/notes", true},
		{"backslash", "dir\\notes", true},
		{"leading dot", ".hidden", true},
		{"space", "my notes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDocumentName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "0b6e5c1e-8a4f-4c43-9d2c-3f1a2b7c9e10", false},
		{"short", "a", false},
		{"with spaces", "node one", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"newline", "a\nb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFolderPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"absolute", "/home/user/projects", false},
		{"relative", "docs/notes", false},
		{"windows", `C:\Users\me`, false},

		{"empty", "", true},
		{"too long", string(make([]byte, 5000)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFolderPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFolderPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateFolderPath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateCommandName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"single word", "save", false},
		{"dashed", "convert-node", false},
		{"multi dashed", "add-linked-folder", false},

		{"empty", "", true},
		{"uppercase", "Save", true},
		{"trailing dash", "save-", true},
		{"underscore", "set_text", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommandName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCommandName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidInput,
		ErrCodeInvalidSnapshot,
		ErrCodeInvalidDocument,
		ErrCodeInvalidPath,
		ErrCodeNodeNotFound,
		ErrCodeDocumentNotFound,
		ErrCodeConversionFailed,
		ErrCodeScanFailed,
		ErrCodeUnknownCommand,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
