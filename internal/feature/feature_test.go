package feature

import (
	"errors"
	"testing"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{name: "valid", title: "Dark mode"},
		{name: "empty", title: "", wantErr: true},
		{name: "whitespace only", title: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateItem(3, tt.title)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("validateItem() = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validateItem() = %v", err)
			}
		})
	}
}

func TestNewFromInputDefaults(t *testing.T) {
	it := newFromInput("space-1", "user-1", NewItem{Title: "Dark mode"})

	if it.ID == "" {
		t.Error("id not assigned")
	}
	if it.Source != SourceManual {
		t.Errorf("source = %q, want manual default", it.Source)
	}
	if it.ContextSpaceID != "space-1" || it.CreatedBy != "user-1" {
		t.Errorf("ownership not set: %+v", it)
	}
	if it.CreatedAt.IsZero() || !it.CreatedAt.Equal(it.UpdatedAt) {
		t.Errorf("timestamps not initialized together: %v / %v", it.CreatedAt, it.UpdatedAt)
	}
}

func TestNewFromInputKeepsImportedSource(t *testing.T) {
	it := newFromInput("space-1", "user-1", NewItem{Title: "CSV import", Source: SourceImported})
	if it.Source != SourceImported {
		t.Errorf("source = %q, want imported", it.Source)
	}
}
