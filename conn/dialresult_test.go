package conn

import (
	"fmt"
	"testing"
)

type dialResultTestCase struct {
	name                   string
	err                    error
	expectedDialResultCode DialResultCode
}

func TestDialResultFromError(t *testing.T) {
	for _, c := range dialResultTestCases {
		t.Run(c.name, func(t *testing.T) {
			if got := DialResultFromError(c.err); got.Code != c.expectedDialResultCode || got.Err != c.err {
				t.Errorf("DialResultFromError(%v) = %v, want %v", c.err, got, c.expectedDialResultCode)
			}
		})
	}
}

func TestDialResultFromHostUnreachable(t *testing.T) {
	err := fmt.Errorf("connect: %w", ErrHostUnreachable)
	if got := DialResultFromError(err); got.Code != DialResultCodeEHOSTUNREACH {
		t.Errorf("DialResultFromError(%v).Code = %v, want %v", err, got.Code, DialResultCodeEHOSTUNREACH)
	}
}
