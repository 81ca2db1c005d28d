package tkscot_test

import (
	"errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/config"
	"io"
	"strings"
	"testing"
)

func TestNewBotWithoutPlugins(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		Build()

	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestNewBotWithSimplePlugin(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPlugin(newPlugin()).
		Build()

	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestNewBotWithPluginAndError(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginErr(newPluginWithErr("")).
		Build()

	require.NoError(t, err)
	require.NotNil(t, b)
}

func TestNewBotWithPluginAndErrorSet(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginErr(newPluginWithErr("error1")).
		Build()

	require.Error(t, err)
	assert.EqualError(t, err, "error1")
	assert.Nil(t, b)
}

func TestNewBotWithPluginAndManyErrors(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginErr(newPluginWithErr("error1")).
		WithPluginErr(newPluginWithErr("error2")).
		WithPlugin(newPlugin()).
		Build()

	require.Error(t, err)
	assert.EqualError(t, err, "error1")
	assert.Nil(t, b)
}

func TestNewBotWithCloserPluginClosingWithError(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginCloserErr(newPluginWithErrAndCloser("", CloseTester{errorMsg: "should be called"})).
		Build()

	require.NoError(t, err)
	require.NotNil(t, b)

	err = b.Close()
	assert.EqualError(t, err, "should be called")
}

func TestNewBotWithCloserPluginClosingWithoutError(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginCloserErr(newPluginWithErrAndCloser("", CloseTester{errorMsg: ""})).
		Build()

	require.NoError(t, err)
	require.NotNil(t, b)

	err = b.Close()
	assert.NoError(t, err)
}

func TestNewBotWithCloserAndErr(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithPluginCloserErr(newPluginWithErrAndCloser("error1", CloseTester{})).
		WithPluginCloserErr(newPluginWithErrAndCloser("error2", CloseTester{})).
		Build()

	require.Error(t, err)
	assert.EqualError(t, err, "error1")
	assert.Nil(t, b)
}

func TestNewBotWithConfigurablePluginMissingConfig(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithConfigurablePluginErr("tester", func(c *viper.Viper) (p *tkscot.Plugin, err error) { return newPluginWithErr("") }).
		WithConfigurablePluginErr("testerClone", func(c *viper.Viper) (p *tkscot.Plugin, err error) { return newPluginWithErr("") }).
		Build()

	require.Error(t, err)
	assert.EqualError(t, err, "Missing plugin configuration for plugin [tester]")
	assert.Nil(t, b)
}

func TestNewBotWithConfigurablePluginValidConfig(t *testing.T) {
	c := config.NewViperWithDefaults()
	c.Set("plugins.tester", map[string]string{"enabled": "true"})

	b, err := tkscot.NewBot("jane", c).
		WithConfigurablePluginErr("tester", func(c *viper.Viper) (p *tkscot.Plugin, err error) { return newPluginWithErr("") }).
		Build()

	assert.NoError(t, err)
	assert.NotNil(t, b)
}

func TestNewBotWithConfigurableCloserPluginMissingConfig(t *testing.T) {
	b, err := tkscot.NewBot("jane", config.NewViperWithDefaults()).
		WithConfigurablePluginCloserErr("tester", func(conf *viper.Viper) (c io.Closer, p *tkscot.Plugin, err error) {
			p, err = newPluginWithErr("")
			return CloseTester{}, p, err
		}).
		WithConfigurablePluginCloserErr("testerClone", func(conf *viper.Viper) (c io.Closer, p *tkscot.Plugin, err error) {
			p, err = newPluginWithErr("")
			return CloseTester{}, p, err
		}).
		Build()

	require.Error(t, err)
	assert.EqualError(t, err, "Missing plugin configuration for plugin [tester]")
	assert.Nil(t, b)
}

func TestNewBotWithConfigurableCloserPluginValidConfig(t *testing.T) {
	c := config.NewViperWithDefaults()
	c.Set("plugins.tester", map[string]string{"enabled": "true"})

	b, err := tkscot.NewBot("jane", c).
		WithConfigurablePluginCloserErr("tester", func(conf *viper.Viper) (c io.Closer, p *tkscot.Plugin, err error) {
			p, err = newPluginWithErr("")
			return CloseTester{}, p, err
		}).
		Build()

	assert.NoError(t, err)
	assert.NotNil(t, b)
}

// newPlugin returns a new tester plugin
func newPlugin() (p *tkscot.Plugin) {
	p = new(tkscot.Plugin)
	p.Name = "tester"
	p.Commands = []tkscot.ActionDefinition{{
		Match: func(m *tkscot.IncomingMessage) bool {
			return strings.HasPrefix(m.NormalizedText, "make")
		},
		Usage:       "make `<something>`",
		Description: "Have the test bot make something for you",
		Answer: func(m *tkscot.IncomingMessage) *tkscot.Answer {
			return &tkscot.Answer{Text: "Ready"}
		},
	}}

	return p
}

// newPluginWithErr returns the plugin along with an error if errorMsg is not empty
func newPluginWithErr(errorMsg string) (p *tkscot.Plugin, err error) {
	if errorMsg != "" {
		return nil, errors.New(errorMsg)
	}

	return newPlugin(), nil
}

// newPluginWithErr returns the plugin along with an error if errorMsg is not empty and the closer
func newPluginWithErrAndCloser(errorMsg string, closer io.Closer) (c io.Closer, p *tkscot.Plugin, err error) {
	p, err = newPluginWithErr(errorMsg)

	return closer, p, err
}

// CloseTester is an empty struct that has is a Closer that either doesn't do anything
// or returns the error set on the CloseTester
type CloseTester struct {
	errorMsg string
}

// Close returns the CloseTester error if set, or just returns nil and does nothing otherwise
func (c CloseTester) Close() (err error) {
	if c.errorMsg != "" {
		return errors.New(c.errorMsg)
	}

	return nil
}
