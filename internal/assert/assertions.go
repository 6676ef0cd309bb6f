package assert

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

// Equal verifies equality of two objects.
func Equal[T any](t *testing.T, a, b T) {
	if !reflect.DeepEqual(a, b) {
		t.Helper()
		t.Fatalf("%v != %v", a, b)
	}
}

// NotEqual verifies objects are not equal.
func NotEqual[T any](t *testing.T, a T, b T) {
	if reflect.DeepEqual(a, b) {
		t.Helper()
		t.Fatalf("%v == %v", a, b)
	}
}

// True verifies the condition holds.
func True(t *testing.T, cond bool, msg string) {
	if !cond {
		t.Helper()
		t.Fatalf("expected true: %s", msg)
	}
}

// InDelta verifies two floats differ by no more than delta.
func InDelta(t *testing.T, expected, actual, delta float64) {
	if math.IsNaN(actual) || math.Abs(expected-actual) > delta {
		t.Helper()
		t.Fatalf("%v is not within %v of %v", actual, delta, expected)
	}
}

// NoError verifies err is nil.
func NoError(t *testing.T, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("unexpected error: %v", err)
	}
}

// ErrorIs checks whether err matches target in its chain.
func ErrorIs(t *testing.T, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Fatalf("error %v is not %v", err, target)
	}
}

// ErrorContains checks whether the given error contains the specified string.
func ErrorContains(t *testing.T, err error, str string) {
	if err == nil {
		t.Helper()
		t.Fatalf("Error is nil")
	} else if !strings.Contains(err.Error(), str) {
		t.Helper()
		t.Fatalf("Error does not contain string: %s", str)
	}
}

// Panics checks whether the given function panics.
func Panics(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Helper()
			t.Fatalf("Function did not panic")
		}
	}()
	f()
}
