package gpioline

import "testing"

func TestOpenUnknownPin(t *testing.T) {
	_, err := Open("NO_SUCH_PIN_XYZ")
	if err == nil {
		t.Fatal("expected error opening an unregistered pin name")
	}
}
