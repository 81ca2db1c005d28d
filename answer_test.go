package tkscot_test

import (
	"github.com/stretchr/testify/assert"
	"github.com/teamkill/tkscot"
	"testing"
)

func TestApplyAnswerOptions(t *testing.T) {
	testCases := []struct {
		name           string
		options        []tkscot.AnswerOption
		expectedConfig map[string]string
	}{
		{"none", []tkscot.AnswerOption{}, make(map[string]string)},
		{"ephemeralAnswer", []tkscot.AnswerOption{tkscot.AnswerEphemeral("U12321")}, map[string]string{tkscot.EphemeralAnswerToOpt: "U12321"}},
		{"replaceOriginal", []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}, map[string]string{tkscot.ReplaceOriginalOpt: "true"}},
		{"ephemeralReplacingOriginal", []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal(), tkscot.AnswerEphemeral("U1")}, map[string]string{tkscot.ReplaceOriginalOpt: "true", tkscot.EphemeralAnswerToOpt: "U1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := tkscot.ApplyAnswerOpts(tc.options...)
			assert.Equal(t, tc.expectedConfig, c)
		})
	}
}
