package errors

import (
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "tcllib", false},
		{"valid with dash", "tcl-json", false},
		{"valid with colons", "tcl::chan", false},
		{"valid with spaces", "Tk Widgets", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https github", "https://github.com/tcltk/tcllib", false},
		{"https fossil with query", "https://core.tcl-lang.org/tcllib/dir?name=modules/ftp&ci=trunk", false},
		{"git scheme", "git://example.org/repo.git", false},
		{"ssh scheme", "ssh://git@example.org/repo.git", false},
		{"scp-like", "git@github.com:tcltk/tk.git", false},

		{"empty", "", true},
		{"no scheme", "github.com/tcltk/tcl", true},
		{"ftp scheme", "ftp://example.org/repo", true},
		{"file scheme", "file:///etc/passwd", true},
		{"option injection", "--upload-pack=touch", true},
		{"whitespace", "https://example.org/a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourceURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSource) {
				t.Errorf("ValidateSourceURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidSource)
			}
		})
	}
}
