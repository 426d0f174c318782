package core

import (
	"errors"
	"testing"
)

func validChunk() *Chunk {
	return &Chunk{
		Kind: SourceComtrade,
		Text: "Trade Statistics Update",
		Metadata: Metadata{
			MetaSource: "comtrade",
			MetaDate:   "2023-10-01",
			MetaHSCode: "851712",
		},
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr error
	}{
		{
			name:    "valid chunk",
			mutate:  func(c *Chunk) {},
			wantErr: nil,
		},
		{
			name:    "empty text",
			mutate:  func(c *Chunk) { c.Text = "" },
			wantErr: ErrEmptyText,
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Chunk) { c.Kind = "customs" },
			wantErr: ErrUnknownSourceKind,
		},
		{
			name:    "missing hs code",
			mutate:  func(c *Chunk) { delete(c.Metadata, MetaHSCode) },
			wantErr: ErrMissingMetadata,
		},
		{
			name:    "non scalar metadata",
			mutate:  func(c *Chunk) { c.Metadata["nested"] = map[string]any{} },
			wantErr: ErrInvalidMetadataValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := validChunk()
			tt.mutate(chunk)

			err := ValidateChunk(chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidChunk) {
				t.Errorf("ValidateChunk() error should wrap ErrInvalidChunk")
			}
		})
	}
}

func TestValidateChunk_Nil(t *testing.T) {
	if err := ValidateChunk(nil); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk(nil) error = %v", err)
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   *Entry
		wantErr error
	}{
		{
			name:    "valid entry",
			entry:   &Entry{ID: "x", Vector: []float32{1}, Metadata: Metadata{"a": "b"}},
			wantErr: nil,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantErr: ErrInvalidEntry,
		},
		{
			name:    "empty id",
			entry:   &Entry{Vector: []float32{1}},
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty vector",
			entry:   &Entry{ID: "x"},
			wantErr: ErrEmptyVector,
		},
		{
			name:    "integer metadata",
			entry:   &Entry{ID: "x", Vector: []float32{1}, Metadata: Metadata{"n": 3}},
			wantErr: ErrInvalidMetadataValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(tt.entry)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEntry() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEntry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
