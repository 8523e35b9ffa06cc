package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
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
			name:    "overlay misuse",
			code:    "O003",
			wantMsg: "SafeToRemove called while the overlay is still present",
			wantCat: CategoryRuntime,
		},
		{
			name:    "config error",
			code:    "C001",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "Z999",
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

func TestErrorString(t *testing.T) {
	err := New("O004").WithDetailf("overlay %q (id %d)", "confirm", 3)
	want := `O004: SafeToRemove called twice: overlay "confirm" (id 3)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := &Error{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestWrapAndIs(t *testing.T) {
	err := New("P002").Wrap(io.ErrUnexpectedEOF)
	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("wrapped error not reachable with errors.Is")
	}

	outer := fmt.Errorf("saving session: %w", err)
	if !stderrors.Is(outer, New("P002")) {
		t.Error("errors.Is did not match by code")
	}
	if stderrors.Is(outer, New("P001")) {
		t.Error("errors.Is matched a different code")
	}
	if Code(outer) != "P002" {
		t.Errorf("Code() = %q", Code(outer))
	}
	if FromError(outer, "P001") != err {
		t.Error("FromError did not return the existing *Error")
	}
	if got := FromError(io.EOF, "P001"); got.Code != "P001" || got.Wrapped != io.EOF {
		t.Errorf("FromError = %+v", got)
	}
	if FromError(nil, "P001") != nil {
		t.Error("FromError(nil) != nil")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("O003").WithDetail(`overlay "sheet" (id 9) is still present`)
	out := err.Format()
	for _, want := range []string{"ERROR O003:", `overlay "sheet"`, "Hint: Close the overlay first."} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	var buf bytes.Buffer
	Print(&buf, err)
	if buf.String() != out {
		t.Errorf("Print wrote %q", buf.String())
	}
	buf.Reset()
	Print(&buf, io.EOF)
	if !strings.Contains(buf.String(), "ERROR: EOF") {
		t.Errorf("Print for a plain error wrote %q", buf.String())
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("C002").WithDetail("limit must be none or once-per-session").Wrap(io.EOF)
	var got map[string]string
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatal(e)
	}
	if got["code"] != "C002" || got["category"] != "config" || got["cause"] != "EOF" {
		t.Errorf("FormatJSON() = %v", got)
	}
}

func TestRegistryComplete(t *testing.T) {
	for _, code := range Codes() {
		tpl, ok := Lookup(code)
		if !ok || tpl.Message == "" || tpl.Category == "" {
			t.Errorf("%s: incomplete template %+v", code, tpl)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line too long: %q", l)
		}
	}
}
