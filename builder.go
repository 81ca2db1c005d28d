package tkscot

import (
	"github.com/spf13/viper"
	"github.com/teamkill/tkscot/config"
	"io"
)

// Builder holds a bot instance to build
type Builder struct {
	bot *Bot
	err error
}

// NewBot returns a new Builder used to set up a new bot
func NewBot(name string, v *viper.Viper, options ...Option) (sb *Builder) {
	sb = new(Builder)
	sb.bot, sb.err = New(name, v, options...)

	return sb
}

// WithPlugin adds a plugin to the bot
func (sb *Builder) WithPlugin(p *Plugin) *Builder {
	if sb.err != nil {
		return sb
	}

	sb.bot.RegisterPlugin(p)

	return sb
}

// WithPluginErr adds a plugin that has a creation function returning (Plugin, error) to the bot
func (sb *Builder) WithPluginErr(p *Plugin, err error) *Builder {
	if sb.err == nil && err != nil {
		sb.err = err
	}

	if sb.err != nil {
		return sb
	}

	sb.bot.RegisterPlugin(p)

	return sb
}

// WithPluginCloserErr adds a plugin that has a creation function returning (io.Closer, Plugin, error) to the bot
func (sb *Builder) WithPluginCloserErr(closer io.Closer, p *Plugin, err error) *Builder {
	if sb.err == nil && err != nil {
		sb.err = err
	}

	if sb.err != nil {
		return sb
	}

	sb.bot.RegisterPlugin(p)

	if closer != nil {
		sb.bot.closers = append(sb.bot.closers, closer)
	}

	return sb
}

// WithConfigurablePluginErr adds a plugin created from its configuration sub-tree (plugins.<name>). A missing
// configuration is an error
func (sb *Builder) WithConfigurablePluginErr(name string, newPlugin func(c *viper.Viper) (p *Plugin, err error)) *Builder {
	if sb.err != nil {
		return sb
	}

	pc, err := config.GetPluginConfig(sb.bot.config, name)
	if err != nil {
		sb.err = err
		return sb
	}

	return sb.WithPluginErr(newPlugin(pc))
}

// WithConfigurablePluginCloserErr adds a plugin with resources to close, created from its configuration sub-tree (plugins.<name>).
// A missing configuration is an error
func (sb *Builder) WithConfigurablePluginCloserErr(name string, newPlugin func(c *viper.Viper) (closer io.Closer, p *Plugin, err error)) *Builder {
	if sb.err != nil {
		return sb
	}

	pc, err := config.GetPluginConfig(sb.bot.config, name)
	if err != nil {
		sb.err = err
		return sb
	}

	return sb.WithPluginCloserErr(newPlugin(pc))
}

// Build returns the built bot instance. If there was an error during
// setup, the error is returned along with a nil bot
func (sb *Builder) Build() (b *Bot, err error) {
	if sb.err != nil {
		return nil, sb.err
	}

	return sb.bot, nil
}
