package utils

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"۲۰۷ پانا ۱۴۰۴", "207 پانا 1404"},
		{"٩٢٦/٠٠٠", "926/000"},
		{"كيا  سفيد", "کیا سفید"},
		{"می‌خوام", "می خوام"},
		{"  پژو\t206 \n\n  قیمت  ۶۵۰ ", "پژو 206\nقیمت 650"},
		{"۱٫۵۹۰", "1.590"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("سلام دوستان، جک J4 مشکی ۱۴۰۴ برج ۲")
	want := []string{"سلام", "دوستان", "جک", "j4", "مشکی", "1404", "برج"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %q; want %q", got, want)
	}
}

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := r.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	sentinel := errors.New("unavailable")
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}
	err := r.Do(context.Background(), "op", func(context.Context) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}
