package paging

import (
	"net/http/httptest"
	"testing"
)

func TestLimitPlusOne(t *testing.T) {
	want := int64(PageSize + 1)
	if got := LimitPlusOne(); got != want {
		t.Errorf("LimitPlusOne() = %d, want %d", got, want)
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
		wantOK bool
	}{
		{"absent defaults to 1", "/", 1, true},
		{"explicit page", "/?page=3", 3, true},
		{"zero rejected", "/?page=0", 0, false},
		{"negative rejected", "/?page=-2", 0, false},
		{"garbage rejected", "/?page=abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePage(httptest.NewRequest("GET", tt.target, nil))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParsePage(%q) = (%d, %v), want (%d, %v)",
					tt.target, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1); got != 0 {
		t.Errorf("Offset(1) = %d, want 0", got)
	}
	if got := Offset(3); got != int64(2*PageSize) {
		t.Errorf("Offset(3) = %d, want %d", got, 2*PageSize)
	}
}

func TestTrim(t *testing.T) {
	short := []int{1, 2, 3}
	if Trim(&short) {
		t.Error("expected no next page for a short slice")
	}
	if len(short) != 3 {
		t.Errorf("short slice modified: len %d", len(short))
	}

	full := make([]int, PageSize+1)
	if !Trim(&full) {
		t.Error("expected a next page for a full look-ahead slice")
	}
	if len(full) != PageSize {
		t.Errorf("expected trim to PageSize, got %d", len(full))
	}
}
