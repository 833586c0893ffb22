package apps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"<b>bold</b> idea", "bold idea"},
		{"<script>alert(1)</script>hi", "hi"},
		{"fish & chips", "fish & chips"},
		{`"quoted"`, `"quoted"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestDepsNormalize(t *testing.T) {
	d := Deps{}.Normalize()
	assert.NotNil(t, d.Logger)
	assert.NotNil(t, d.Notifier)
	d.Notifier.Close()
}
