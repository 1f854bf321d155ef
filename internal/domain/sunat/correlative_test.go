package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

func TestNextCorrelative(t *testing.T) {
	cases := []struct {
		last, want string
	}{
		{"", "001"},
		{"1", "002"},
		{"009", "010"},
		{"099", "100"},
		{"999", "1000"},
		{"12345", "12346"},
	}
	for _, tc := range cases {
		got, err := sunat.NextCorrelative(tc.last)
		require.NoError(t, err, tc.last)
		assert.Equal(t, tc.want, got, "siguiente de %q", tc.last)
	}

	_, err := sunat.NextCorrelative("ABC")
	assert.Error(t, err)
}

func TestResolveSeries(t *testing.T) {
	assert.Equal(t, "F002", sunat.ResolveSeries("f002", "F001", "01"))
	assert.Equal(t, "F001", sunat.ResolveSeries("", "F001", "01"))
	assert.Equal(t, "B001", sunat.ResolveSeries("", "", "03"))
	assert.Equal(t, "T001", sunat.ResolveSeries("", "", "09"))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "20100000001-01-F001-123", sunat.FileStem("20100000001", "01", "F001", "123"))
}
