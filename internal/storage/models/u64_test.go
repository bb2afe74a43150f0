package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU64Scan(t *testing.T) {
	tests := []struct {
		name     string
		src      interface{}
		expected U64
		wantErr  bool
	}{
		{name: "string", src: "18446744073709551615", expected: U64(^uint64(0))},
		{name: "bytes", src: []byte("42"), expected: 42},
		{name: "int64", src: int64(7), expected: 7},
		{name: "nil", src: nil, expected: 0},
		{name: "negative", src: int64(-1), wantErr: true},
		{name: "garbage", src: "abc", wantErr: true},
		{name: "float", src: 1.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u U64
			err := u.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, u)
		})
	}

	v, err := U64(^uint64(0)).Value()
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", v)
}
