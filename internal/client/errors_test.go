package client

import "testing"

func TestClassifyMapsStatusToTypedErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{401, func(err error) bool { _, ok := err.(*AuthError); return ok }},
		{403, func(err error) bool { _, ok := err.(*AuthError); return ok }},
		{404, func(err error) bool { _, ok := err.(*NotFoundError); return ok }},
		{409, func(err error) bool { _, ok := err.(*ConflictError); return ok }},
		{429, func(err error) bool { _, ok := err.(*RateLimitError); return ok }},
		{500, func(err error) bool { _, ok := err.(*ServerError); return ok }},
		{503, func(err error) bool { _, ok := err.(*ServerError); return ok }},
	}
	for _, c := range cases {
		err := classify(c.status, "CODE", "message")
		if !c.check(err) {
			t.Errorf("classify(%d) produced unexpected type: %T", c.status, err)
		}
	}
}

func TestClassifyUnmappedStatusReturnsBareAPIError(t *testing.T) {
	err := classify(418, "TEAPOT", "i am a teapot")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != 418 {
		t.Fatalf("expected status 418, got %d", apiErr.Status)
	}
}

func TestIsNotAvailableDetects409(t *testing.T) {
	conflict := &ConflictError{&APIError{Status: 409}}
	if !isNotAvailable(conflict) {
		t.Fatal("expected 409 ConflictError to be treated as not-available")
	}

	other := &ConflictError{&APIError{Status: 409, Code: "whatever"}}
	if !isNotAvailable(other) {
		t.Fatal("expected any 409 to be treated as not-available regardless of code")
	}

	auth := &AuthError{&APIError{Status: 401}}
	if isNotAvailable(auth) {
		t.Fatal("expected AuthError to not be treated as not-available")
	}
}
