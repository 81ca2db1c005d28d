/*
Package tkscot provides the bot engine of the teamkill counter.

The engine connects to slack over socket mode and drives plugins that can combine commands,
hear actions (listeners), scheduled actions and block actions (interactive buttons). Commands
are reached by mentioning the bot, in direct messages or via the configured slash command
(acknowledged before any work is done). Commands flagged as admin-only answer with an
ephemeral denial when invoked by someone who isn't an admin.

Plugins also have access to services injected on startup by tkscot such as:
 - UserInfoFinder: To query user info
 - SLogger: To log debug/info statements
 - FileUploader: To upload files
 - FileDownloader: To download files shared on slack
 - ChatPoster: To send messages outside the normal reaction flow (i.e. from a scheduled action or a timer)

Example code (see cmd/tkscot for the full wiring):

	bot, err := tkscot.NewBot("tkscot", v, tkscot.OptionLogger(logger)).
		WithConfigurablePluginCloserErr(plugins.TeamkillPluginName, func(c *viper.Viper) (io.Closer, *tkscot.Plugin, error) {
			tk, err := plugins.NewTeamkill(c, store, auditLog, backupTask)
			if err != nil {
				return nil, nil, err
			}

			return tk, &tk.Plugin, nil
		}).
		WithPlugin(plugins.NewVersioner("tkscot", version)).
		Build()
	if err != nil {
		log.Fatal(err)
	}
	defer bot.Close()

	err = bot.Run(ctx)
*/
package tkscot
