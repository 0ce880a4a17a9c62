package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("tip position updated")
	if got != "tip position updated" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not a nil function.
	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	SetLogger(nil)
	Logf("dropped")
	if called {
		t.Error("no-op logger must not invoke the previous logger")
	}
	if Logf == nil {
		t.Error("Logf must never be nil")
	}
}

func TestDefaultLogger(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should default to a usable logger")
	}
}
