package runner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/caffeineduck/eyesy/interp"
	"github.com/stretchr/testify/assert"
)

func TestDefaultClassifier(t *testing.T) {
	cl := DefaultClassifier()

	tests := []struct {
		name        string
		err         error
		consecutive int
		want        Severity
	}{
		{"plain failure", errors.New("ZeroDivisionError: division by zero"), 1, Transient},
		{"just under threshold", errors.New("boom"), 9, Transient},
		{"at threshold", errors.New("boom"), 10, Critical},
		{"past threshold", errors.New("boom"), 11, Critical},
		{"NoneType", errors.New("AttributeError: 'NoneType' object has no attribute 'fill'"), 1, Critical},
		{"None", errors.New("TypeError: expected number, got None"), 1, Critical},
		{"not found", errors.New(`surface "surface_9" not found`), 1, Critical},
		{"of undefined", errors.New("TypeError: Cannot read property 'x' of undefined"), 1, Critical},
		{"wrapped", fmt.Errorf("draw: %w", &interp.InterpreterError{Message: "name 'screen' is None"}), 1, Critical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cl.Classify(tt.err, tt.consecutive))
		})
	}
}

func TestSubstringClassifierWithoutThreshold(t *testing.T) {
	cl := SubstringClassifier{Patterns: []string{"fatal", ""}}

	assert.Equal(t, Transient, cl.Classify(errors.New("boom"), 1000))
	assert.Equal(t, Critical, cl.Classify(errors.New("fatal: out of memory"), 1))
}

func TestErrorKind(t *testing.T) {
	ie := &interp.InterpreterError{Message: "SyntaxError"}

	tests := []struct {
		err  error
		want string
	}{
		{&interp.LoadError{Engine: "python", Err: errors.New("missing")}, "load"},
		{&SurfaceError{Err: errors.New("bad size")}, "surface"},
		{&ModeContractError{Missing: []string{"draw"}}, "contract"},
		{&ModeSetupError{Err: ie}, "setup"},
		{ie, "interpreter"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%T", tt.err)
	}
}

func TestErrorMessages(t *testing.T) {
	err := &ModeContractError{Missing: []string{"setup", "draw"}}
	assert.Equal(t, "mode must define setup() and draw(): missing setup, draw", err.Error())

	derr := &DrawError{Severity: Critical, Consecutive: 3, Err: errors.New("boom")}
	assert.Contains(t, derr.Error(), "boom")
	assert.Equal(t, "critical", Critical.String())
	assert.Equal(t, "transient", Transient.String())
}
