package orders

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"marginfx/internal/margin"

	"github.com/shopspring/decimal"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrOrderNotFound, http.StatusNotFound},
		{ErrOrderNotOpen, http.StatusConflict},
		{&InsufficientMarginError{Required: decimal.NewFromInt(1100), Available: decimal.NewFromInt(900)}, http.StatusUnprocessableEntity},
		{ErrInvalidOrderParameters, http.StatusBadRequest},
		{fmt.Errorf("%w: volume too small", ErrInvalidOrderParameters), http.StatusBadRequest},
		{margin.ErrInvalidLeverage, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Errorf("statusForError(%v) got=%d want=%d", tc.err, got, tc.want)
		}
	}
}

func TestInsufficientMarginErrorMessage(t *testing.T) {
	err := &InsufficientMarginError{Required: decimal.NewFromInt(1100), Available: decimal.NewFromInt(900)}
	want := "insufficient free margin: required 1100, available 900"
	if err.Error() != want {
		t.Fatalf("message got=%q want=%q", err.Error(), want)
	}
}
