package isbn

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid isbn13 unchanged", "9780306406157", "9780306406157", false},
		{"isbn13 with hyphens", "978-0-306-40615-7", "9780306406157", false},
		{"isbn10 converts", "0306406152", "9780306406157", false},
		{"isbn10 with spaces", "0 306 40615 2", "9780306406157", false},
		{"isbn10 lowercase x", "080442957x", "9780804429573", false},
		{"isbn13 bad check digit", "9780306406158", "", true},
		{"isbn10 bad check digit", "0306406153", "", true},
		{"nine digits", "030640615", "", true},
		{"empty", "", "", true},
		{"x inside isbn10", "03064X6152", "", true},
		{"x in isbn13", "978030640615X", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeAcceptsIffChecksumHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		body := fmt.Sprintf("%012d", rng.Int63n(1_000_000_000_000))
		check := int(checkDigit13(body) - '0')
		for d := 0; d <= 9; d++ {
			candidate := fmt.Sprintf("%s%d", body, d)
			_, err := Normalize(candidate)
			if d == check {
				require.NoError(t, err, candidate)
			} else {
				require.ErrorIs(t, err, ErrInvalid, candidate)
			}
		}
	}
}

func TestConvertedISBN10PassesISBN13Checksum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	converted := 0
	for converted < 500 {
		body := fmt.Sprintf("%09d", rng.Int63n(1_000_000_000))
		for _, last := range "0123456789X" {
			candidate := body + string(last)
			if !ValidISBN10(candidate) {
				continue
			}
			got, err := Normalize(candidate)
			require.NoError(t, err)
			assert.True(t, ValidISBN13(got), "%s -> %s", candidate, got)
			assert.Equal(t, "978"+body, got[:12])
			converted++
		}
	}
}
