package validation

import (
	"strings"
	"testing"

	"github.com/YuminosukeSato/foodcast/pkg/errors"
)

type sample struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Count int    `json:"count" validate:"gt=0"`
	Inner inner  `koanf:"inner"`
}

type inner struct {
	Format string `koanf:"format" validate:"oneof=json console"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        sample
		wantParam string
		wantMsg   string
	}{
		{
			name: "valid",
			in:   sample{Date: "2024-06-15", Count: 1, Inner: inner{Format: "json"}},
		},
		{
			name:      "missing date",
			in:        sample{Count: 1, Inner: inner{Format: "json"}},
			wantParam: "date",
			wantMsg:   "is required",
		},
		{
			name:      "bad date",
			in:        sample{Date: "15/06/2024", Count: 1, Inner: inner{Format: "json"}},
			wantParam: "date",
			wantMsg:   "2006-01-02",
		},
		{
			name:      "non-positive count",
			in:        sample{Date: "2024-06-15", Inner: inner{Format: "json"}},
			wantParam: "count",
			wantMsg:   "greater than 0",
		},
		{
			name:      "nested koanf name",
			in:        sample{Date: "2024-06-15", Count: 1, Inner: inner{Format: "xml"}},
			wantParam: "inner.format",
			wantMsg:   "json console",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.ParamName != tt.wantParam {
				t.Errorf("param = %q, want %q", ve.ParamName, tt.wantParam)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
