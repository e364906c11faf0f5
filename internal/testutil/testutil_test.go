package testutil

import (
	"errors"
	"net/http"
	"testing"
)

// recordingTB captures helper failures without failing the enclosing
// test. Only the methods the helpers call are implemented; anything
// else panics through the nil embedded TB.
type recordingTB struct {
	testing.TB
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...interface{}) {
	r.failed = true
	r.message = format
}

func (r *recordingTB) Fatalf(format string, args ...interface{}) {
	r.failed = true
	r.message = format
}

func (r *recordingTB) Fatal(args ...interface{}) {
	r.failed = true
}

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()

	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestAssertStatusCode_FailurePath(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{}
	AssertStatusCode(rec, http.StatusOK, http.StatusBadRequest)
	if !rec.failed {
		t.Error("expected failure on mismatched status code")
	}
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	AssertNoError(t, nil)
}

func TestAssertNoError_FailurePath(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{}
	AssertNoError(rec, errors.New("boom"))
	if !rec.failed {
		t.Error("expected failure when error is non-nil")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	AssertError(t, errors.New("test error"))
}

func TestAssertError_FailurePath(t *testing.T) {
	t.Parallel()

	rec := &recordingTB{}
	AssertError(rec, nil)
	if !rec.failed {
		t.Error("expected failure when error is nil")
	}
}

func TestNewTestRequest(t *testing.T) {
	t.Parallel()

	req := NewTestRequest("GET", "/test")
	if req.Method != "GET" {
		t.Errorf("method = %s, want GET", req.Method)
	}
	if req.URL.Path != "/test" {
		t.Errorf("path = %s, want /test", req.URL.Path)
	}
}

func TestNewTestRecorder(t *testing.T) {
	t.Parallel()

	rec := NewTestRecorder()
	if rec == nil {
		t.Fatal("recorder is nil")
	}
}
