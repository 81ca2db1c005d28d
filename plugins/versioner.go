package plugins

import (
	"fmt"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/actions"
	"github.com/teamkill/tkscot/plugin"
	"strings"
)

const (
	versionerPluginName = "versioner"
)

// NewVersioner creates a new instance of the versioner plugin
func NewVersioner(name string, version string) (p *tkscot.Plugin) {
	p = plugin.New(versionerPluginName).
		WithCommand(actions.NewCommand().
			WithMatcher(func(m *tkscot.IncomingMessage) bool {
				return strings.HasPrefix(m.NormalizedText, "version")
			}).
			WithUsage("version").
			WithDescriptionf("Reply with `%s`'s `version` number", name).
			WithAnswerer(func(m *tkscot.IncomingMessage) *tkscot.Answer {
				return &tkscot.Answer{Text: fmt.Sprintf("I'm `%s`, version `%s` (engine `v%s`)", name, version, tkscot.VERSION)}
			}).
			Build()).
		Build()
	return p
}
