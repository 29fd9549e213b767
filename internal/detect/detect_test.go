package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalsHasSuccess(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    bool
	}{
		{"nothing", Signals{}, false},
		{"selector only", Signals{MatchedSelectors: []string{`[data-e2e-locator="submission-result"]`}}, true},
		{"accepted text only", Signals{AcceptedText: true}, true},
		{"result area only", Signals{ResultAreaHit: true}, true},
		{"all at once", Signals{
			MatchedSelectors: []string{".text-success"},
			AcceptedText:     true,
			ResultAreaHit:    true,
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.signals.HasSuccess())
		})
	}
}
