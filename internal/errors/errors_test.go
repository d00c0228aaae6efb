package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrapPreservesCode(t *testing.T) {
	base := DatabaseError("failed to save prior", stderrors.New("connection reset"))
	wrapped := Wrap(base, "derive aborted")
	if GetCode(wrapped) != CodeDatabaseError {
		t.Errorf("code = %q, want %q", GetCode(wrapped), CodeDatabaseError)
	}
	if !stderrors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestWrapUncoded(t *testing.T) {
	wrapped := Wrapf(stderrors.New("boom"), "loading %s", "config")
	if GetCode(wrapped) != CodeInternalError {
		t.Errorf("code = %q, want %q", GetCode(wrapped), CodeInternalError)
	}
	if wrapped.Error() != "loading config: boom" {
		t.Errorf("message = %q", wrapped.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "ignored") != nil || Wrapf(nil, "ignored") != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "config", err: ConfigInvalid("SAMPLER_URL missing"), want: CodeConfigInvalid},
		{name: "database", err: DatabaseError("exec failed", stderrors.New("timeout")), want: CodeDatabaseError},
		{name: "external", err: ExternalServiceError("sampler", stderrors.New("refused")), want: CodeExternalService},
		{name: "plain", err: stderrors.New("boom"), want: "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExternalServiceErrorUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ExternalServiceError("sampler", cause)
	if !stderrors.Is(err, cause) {
		t.Error("external service error should unwrap to its cause")
	}
}
