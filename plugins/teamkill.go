// Package plugins provides the plugins of tkscot
package plugins

import (
	"bytes"
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"github.com/teamkill/tkscot"
	"github.com/teamkill/tkscot/actions"
	"github.com/teamkill/tkscot/auditlog"
	"github.com/teamkill/tkscot/backup"
	"github.com/teamkill/tkscot/counter"
	"github.com/teamkill/tkscot/plugin"
	"github.com/teamkill/tkscot/restore"
	"github.com/teamkill/tkscot/schedule"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// TeamkillPluginName holds identifying name for the teamkill plugin
	TeamkillPluginName = "teamkill"

	// LeaderboardSizeKey is the plugin configuration key for the number of users listed by top
	LeaderboardSizeKey = "leaderboardSize"

	defaultLeaderboardSize = 10
	recentLogEntries       = 10
	operationTimeout       = time.Minute

	restoreConfirmActionID = "tk_restore_confirm"
	restoreCancelActionID  = "tk_restore_cancel"
)

const mention = `<@([A-Za-z0-9]+)(?:\|[^>]*)?>`

var tkRegex = regexp.MustCompile(`(?i)` + mention + `\s+tk\b`)
var victimRegex = regexp.MustCompile(`\A\s+` + mention)
var countRegex = regexp.MustCompile(`(?i)\Acount\s+` + mention + `\s*\z`)
var myCountRegex = regexp.MustCompile(`(?i)\Amycount\s*\z`)
var topRegex = regexp.MustCompile(`(?i)\Atop(?:\s+(kills|deaths))?\s*\z`)
var resetRegex = regexp.MustCompile(`(?i)\Areset\s+` + mention + `\s*\z`)
var decrementRegex = regexp.MustCompile(`(?i)\Adecrement\s+` + mention + `(?:\s+(kills|deaths))?\s*\z`)
var exportStoreRegex = regexp.MustCompile(`(?i)\Aexport-store\s*\z`)
var importStoreRegex = regexp.MustCompile(`(?i)\Aimport-store(?:\s+(\S+))?\s*\z`)
var logsRegex = regexp.MustCompile(`(?i)\Alogs\s*\z`)
var exportLogsRegex = regexp.MustCompile(`(?i)\Aexport-logs\s*\z`)
var syncRegex = regexp.MustCompile(`(?i)\Async\s*\z`)

// Teamkill holds the plugin data for the teamkill plugin
type Teamkill struct {
	tkscot.Plugin
	store           *counter.Store
	log             *auditlog.Log
	backupTask      *backup.Task
	restorer        *restore.Manager
	leaderboardSize int
	restoreWindow   time.Duration
	backupInterval  time.Duration

	originsLock sync.Mutex
	origins     map[string]string
}

// TeamkillOption defines an option for the Teamkill plugin
type TeamkillOption func(tk *Teamkill)

// OptionRestoreWindow sets the time an admin has to confirm a restore
func OptionRestoreWindow(window time.Duration) TeamkillOption {
	return func(tk *Teamkill) {
		tk.restoreWindow = window
	}
}

// OptionBackupInterval sets the time between two scheduled backups. A zero interval disables them
func OptionBackupInterval(interval time.Duration) TeamkillOption {
	return func(tk *Teamkill) {
		tk.backupInterval = interval
	}
}

// NewTeamkill creates a new instance of the Teamkill plugin. The store must already be loaded. The
// returned plugin must be closed to stop pending restore timers
func NewTeamkill(c *viper.Viper, store *counter.Store, log *auditlog.Log, backupTask *backup.Task, opts ...TeamkillOption) (tk *Teamkill, err error) {
	if store == nil || log == nil || backupTask == nil {
		return nil, fmt.Errorf("plugin [%s] requires a store, a log and a backup task", TeamkillPluginName)
	}

	c.SetDefault(LeaderboardSizeKey, defaultLeaderboardSize)

	tk = new(Teamkill)
	tk.store = store
	tk.log = log
	tk.backupTask = backupTask
	tk.leaderboardSize = c.GetInt(LeaderboardSizeKey)
	tk.restoreWindow = restore.DefaultWindow
	tk.backupInterval = backup.DefaultInterval
	tk.origins = make(map[string]string)

	for _, opt := range opts {
		opt(tk)
	}

	if tk.leaderboardSize <= 0 {
		return nil, fmt.Errorf("invalid [%s] value [%d] for plugin [%s], must be positive", LeaderboardSizeKey, tk.leaderboardSize, TeamkillPluginName)
	}

	tk.restorer = restore.NewManager(store, restore.OptionWindow(tk.restoreWindow), restore.OptionOnExpire(tk.notifyRestoreExpired), restore.OptionLogger(pluginLogger{tk: tk}))

	countDescription := "Show the teamkills of a user"
	decrementUsage := "decrement <@user>"
	topUsage := "top"
	if store.Schema() == counter.SchemaKillsDeaths {
		countDescription = "Show the kills and deaths of a user"
		decrementUsage = "decrement <@user> [kills|deaths]"
		topUsage = "top [kills|deaths]"
	}

	tkAction := actions.NewHearAction().
		WithMatcher(matchTeamkill).
		WithUsage("<@user> tk").
		WithDescription("Count a teamkill committed by a user (`<@killer> tk <@victim>` also counts a death when tracking kills and deaths)").
		WithAnswerer(tk.recordTeamkill)

	pb := plugin.New(TeamkillPluginName).
		WithHearAction(tkAction.Build()).
		WithCommand(tkAction.Hidden().Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(countRegex)).
			WithUsage("count <@user>").
			WithDescription(countDescription).
			WithAnswerer(tk.answerCount).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(myCountRegex)).
			WithUsage("mycount").
			WithDescription("Show your own teamkills").
			WithAnswerer(tk.answerMyCount).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(topRegex)).
			WithUsage(topUsage).
			WithDescriptionf("Show the top %d users with the most teamkills", tk.leaderboardSize).
			WithAnswerer(tk.answerTop).
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(resetRegex)).
			WithUsage("reset <@user>").
			WithDescription("Reset the counter of a user to 0").
			WithAnswerer(tk.resetCounter).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(decrementRegex)).
			WithUsage(decrementUsage).
			WithDescription("Take one off the counter of a user").
			WithAnswerer(tk.decrementCounter).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(exportStoreRegex)).
			WithUsage("export-store").
			WithDescription("Upload the store file").
			WithAnswerer(tk.exportStore).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(importStoreRegex)).
			WithUsage("import-store <fileID>").
			WithDescriptionf("Replace the store with a shared json file, after confirmation (within %s)", tk.restoreWindow).
			WithAnswerer(tk.importStore).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(logsRegex)).
			WithUsage("logs").
			WithDescriptionf("Show the last %d log entries", recentLogEntries).
			WithAnswerer(tk.showRecentLogs).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(exportLogsRegex)).
			WithUsage("export-logs").
			WithDescription("Upload the full log file").
			WithAnswerer(tk.exportLogs).
			Admin().
			Build()).
		WithCommand(actions.NewCommand().
			WithMatcher(matchRegex(syncRegex)).
			WithUsage("sync").
			WithDescription("Push the store and log files to their remote mirror now").
			WithAnswerer(tk.sync).
			Admin().
			Build()).
		WithBlockAction(actions.NewBlockAction().
			WithActionIDPrefix(restoreConfirmActionID).
			WithHandler(tk.confirmRestore).
			Admin().
			Build()).
		WithBlockAction(actions.NewBlockAction().
			WithActionIDPrefix(restoreCancelActionID).
			WithHandler(tk.cancelRestore).
			Admin().
			Build())

	if tk.backupInterval > 0 {
		pb = pb.WithScheduledAction(actions.NewScheduledAction().
			WithSchedule(schedule.Every(tk.backupInterval)).
			WithDescription("Push the store and log files to their remote mirror").
			WithAction(tk.runBackup).
			Build())
	}

	tk.Plugin = *pb.Build()

	return tk, nil
}

// Close drops pending restores and stops their timers
func (tk *Teamkill) Close() (err error) {
	return tk.restorer.Close()
}

// pluginLogger forwards to the plugin logger once it's been injected
type pluginLogger struct {
	tk *Teamkill
}

func (pl pluginLogger) Printf(format string, v ...interface{}) {
	if pl.tk.Logger != nil {
		pl.tk.Logger.Printf(format, v...)
	}
}

func (pl pluginLogger) Debugf(format string, v ...interface{}) {
	if pl.tk.Logger != nil {
		pl.tk.Logger.Debugf(format, v...)
	}
}

func matchRegex(r *regexp.Regexp) tkscot.Matcher {
	return func(m *tkscot.IncomingMessage) bool {
		return r.MatchString(m.NormalizedText)
	}
}

// matchTeamkill returns true if the message has at least one "<@user> tk"
func matchTeamkill(m *tkscot.IncomingMessage) bool {
	return tkRegex.MatchString(m.NormalizedText)
}

// identify returns the identity of a user, using their real name (or user name) when they can be looked up
func (tk *Teamkill) identify(userID string) (id auditlog.Identity) {
	id = auditlog.Identity{ID: userID}

	if tk.UserInfoFinder == nil {
		return id
	}

	user, err := tk.UserInfoFinder.GetUserInfo(userID)
	if err != nil {
		tk.Logger.Debugf("[%s] Error looking up user [%s], using id as name: %v", TeamkillPluginName, userID, err)
		return id
	}

	id.Name = user.RealName
	if id.Name == "" {
		id.Name = user.Name
	}

	return id
}

func newContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

func plural(count int, singular string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}

	return fmt.Sprintf("%d %ss", count, singular)
}

// recordTeamkill increments the counter of every user followed by "tk" in the message. With the kills
// and deaths schema, a mention following "tk" also gets a death
func (tk *Teamkill) recordTeamkill(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	by := tk.identify(m.User)
	lines := make([]string, 0)

	text := m.NormalizedText
	for _, loc := range tkRegex.FindAllStringSubmatchIndex(text, -1) {
		killer := tk.identify(text[loc[2]:loc[3]])
		r, err := tk.store.Increment(ctx, by, killer, counter.Kills)
		if err != nil {
			tk.Logger.Printf("[%s] Error recording teamkill of [%s]: %v", TeamkillPluginName, killer.ID, err)
			continue
		}
		tk.warnOnPersistError(r)

		// The victim mention isn't consumed by the match so it can start the next teamkill
		var victimMatch []string
		if tk.store.Schema() == counter.SchemaKillsDeaths {
			victimMatch = victimRegex.FindStringSubmatch(text[loc[1]:])
		}

		if victimMatch == nil {
			lines = append(lines, fmt.Sprintf("🔢 `%s` has committed %s!", killer, plural(r.Value, "teamkill")))
			continue
		}

		victim := tk.identify(victimMatch[1])
		vr, err := tk.store.Increment(ctx, by, victim, counter.Deaths)
		if err != nil {
			tk.Logger.Printf("[%s] Error recording death of [%s]: %v", TeamkillPluginName, victim.ID, err)
			lines = append(lines, fmt.Sprintf("🔢 `%s` has committed %s!", killer, plural(r.Value, "teamkill")))
			continue
		}
		tk.warnOnPersistError(vr)

		lines = append(lines, fmt.Sprintf("🔢 `%s` has committed %s and `%s` died %s!", killer, plural(r.Value, "teamkill"), victim, plural(vr.Value, "time")))
	}

	if len(lines) == 0 {
		return nil
	}

	return &tkscot.Answer{Text: strings.Join(lines, "\n")}
}

func (tk *Teamkill) warnOnPersistError(r counter.Result) {
	if r.PersistErr != nil {
		tk.Logger.Printf("[%s] Warning: counter updated in memory but not fully persisted: %v", TeamkillPluginName, r.PersistErr)
	}
}

// describeRecord renders the counts of a user according to the store schema
func (tk *Teamkill) describeRecord(r counter.Record) string {
	if tk.store.Schema() == counter.SchemaKillsDeaths {
		return fmt.Sprintf("%s and %s", plural(r.Kills, "teamkill"), plural(r.Deaths, "death"))
	}

	return plural(r.Kills, "teamkill")
}

func (tk *Teamkill) answerCount(m *tkscot.IncomingMessage) *tkscot.Answer {
	match := countRegex.FindStringSubmatch(m.NormalizedText)
	subject := tk.identify(match[1])

	return &tkscot.Answer{Text: fmt.Sprintf("📊 `%s` currently has %s.", subject, tk.describeRecord(tk.store.Get(subject.ID)))}
}

func (tk *Teamkill) answerMyCount(m *tkscot.IncomingMessage) *tkscot.Answer {
	self := tk.identify(m.User)

	return &tkscot.Answer{Text: fmt.Sprintf("🙋 `%s`, you currently have %s.", self, tk.describeRecord(tk.store.Get(self.ID)))}
}

func (tk *Teamkill) answerTop(m *tkscot.IncomingMessage) *tkscot.Answer {
	match := topRegex.FindStringSubmatch(m.NormalizedText)

	field := counter.Kills
	if match[1] != "" {
		field = counter.Field(strings.ToLower(match[1]))
	}

	if !tk.store.Schema().Valid(field) {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ This store doesn't track `%s`, try `top`.", field), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	standings := tk.store.Leaderboard(field, tk.leaderboardSize)
	if len(standings) == 0 {
		return &tkscot.Answer{Text: "😇 Nobody is on the leaderboard yet."}
	}

	unit := "teamkill"
	if field == counter.Deaths {
		unit = "death"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 *Top %d by %ss*:\n\n", len(standings), unit)
	for _, s := range standings {
		fmt.Fprintf(&b, "*%d.* %s: %s\n", s.Rank, tk.identify(s.UserID), plural(s.Value, unit))
	}

	return &tkscot.Answer{Text: b.String()}
}

func (tk *Teamkill) resetCounter(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	match := resetRegex.FindStringSubmatch(m.NormalizedText)
	subject := tk.identify(match[1])

	r, err := tk.store.Reset(ctx, tk.identify(m.User), subject)
	if err != nil {
		return tk.errorAnswer(m, "reset the counter", err)
	}
	tk.warnOnPersistError(r)

	if r.Status == counter.NotModified {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ `%s` has no counter to reset.", subject), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	return &tkscot.Answer{Text: fmt.Sprintf("🔄 The counter of `%s` was reset to 0.", subject)}
}

func (tk *Teamkill) decrementCounter(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	match := decrementRegex.FindStringSubmatch(m.NormalizedText)
	subject := tk.identify(match[1])

	field := counter.Kills
	if match[2] != "" {
		field = counter.Field(strings.ToLower(match[2]))
	}

	label := "counter"
	if tk.store.Schema() == counter.SchemaKillsDeaths {
		label = string(field) + " counter"
	}

	r, err := tk.store.Decrement(ctx, tk.identify(m.User), subject, field)
	if err != nil {
		return tk.errorAnswer(m, "decrement the "+label, err)
	}

	if r.Status == counter.NotModified {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ The %s of `%s` is already at 0 and can't go any lower.", label, subject)}
	}
	tk.warnOnPersistError(r)

	return &tkscot.Answer{Text: fmt.Sprintf("➖ The %s of `%s` went down to %d.", label, subject, r.Value)}
}

func (tk *Teamkill) exportStore(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	content, err := tk.store.Export()
	if err != nil {
		return tk.errorAnswer(m, "export the store", err)
	}

	name := filepath.Base(tk.store.Path())
	if err = tk.upload(m, name, "json", content); err != nil {
		return tk.errorAnswer(m, "upload the store", err)
	}

	by := tk.identify(m.User)
	tk.appendLog(ctx, auditlog.Entry{Actor: by, Action: auditlog.ActionExport, Value: tk.store.Snapshot().Len(),
		Message: fmt.Sprintf("%s exported %s", by, name)})

	return &tkscot.Answer{Text: fmt.Sprintf("📂 Here's the backup of `%s`.", name), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
}

func (tk *Teamkill) importStore(m *tkscot.IncomingMessage) *tkscot.Answer {
	match := importStoreRegex.FindStringSubmatch(m.NormalizedText)

	fileID := match[1]
	if fileID == "" && len(m.Files) > 0 {
		fileID = m.Files[0].ID
	}

	if fileID == "" {
		return &tkscot.Answer{Text: "⚠️ Share a `.json` store file and give me its id: `import-store <fileID>`.", Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	var b bytes.Buffer
	file, err := tk.FileDownloader.DownloadFile(fileID, &b)
	if err != nil {
		return tk.errorAnswer(m, "download the file", err)
	}

	if file.Name != "" && !strings.HasSuffix(strings.ToLower(file.Name), ".json") {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ `%s` isn't a `.json` file.", file.Name), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	p := tk.restorer.Begin(tk.identify(m.User), b.Bytes())

	tk.originsLock.Lock()
	tk.origins[p.ID] = m.Channel
	tk.originsLock.Unlock()

	text := fmt.Sprintf("⚠️ Are you sure you want to *overwrite* `%s` with `%s` (%s)? This request expires in %s.", filepath.Base(tk.store.Path()), fileID, plural(b.Len(), "byte"), tk.restoreWindow)

	return &tkscot.Answer{Text: text, Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}, ContentBlocks: restoreBlocks(p.ID, text)}
}

// restoreBlocks renders the restore question with its confirm and cancel buttons. Both buttons carry the
// pending restore id as value
func restoreBlocks(pendingID string, text string) []slack.Block {
	question := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	confirm := slack.NewButtonBlockElement(restoreConfirmActionID, pendingID, slack.NewTextBlockObject(slack.PlainTextType, "✅ Confirm", true, false))
	confirm.Style = slack.StylePrimary

	cancel := slack.NewButtonBlockElement(restoreCancelActionID, pendingID, slack.NewTextBlockObject(slack.PlainTextType, "❌ Cancel", true, false))
	cancel.Style = slack.StyleDanger

	return []slack.Block{question, slack.NewActionBlock("tk_restore_"+pendingID, confirm, cancel)}
}

func (tk *Teamkill) forgetOrigin(pendingID string) (channelID string) {
	tk.originsLock.Lock()
	defer tk.originsLock.Unlock()

	channelID = tk.origins[pendingID]
	delete(tk.origins, pendingID)

	return channelID
}

func (tk *Teamkill) confirmRestore(ba *tkscot.BlockAction) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	o, err := tk.restorer.Confirm(ctx, ba.Value, tk.identify(ba.UserID))
	if err != nil {
		return restoreResolutionError(ba, err)
	}
	tk.forgetOrigin(o.ID)

	if o.State == restore.AppliedWithError {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ The restore was rejected and the store left untouched: %v", o.Err), Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}}
	}

	return &tkscot.Answer{Text: fmt.Sprintf("♻️ The store was restored with %s.", plural(o.Snapshot.Len(), "user")), Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}}
}

func (tk *Teamkill) cancelRestore(ba *tkscot.BlockAction) *tkscot.Answer {
	o, err := tk.restorer.Cancel(ba.Value, tk.identify(ba.UserID))
	if err != nil {
		return restoreResolutionError(ba, err)
	}
	tk.forgetOrigin(o.ID)

	return &tkscot.Answer{Text: "❌ Restore cancelled.", Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}}
}

func restoreResolutionError(ba *tkscot.BlockAction, err error) *tkscot.Answer {
	if errors.Is(err, restore.ErrNotRequester) {
		return &tkscot.Answer{Text: "🚫 Only the admin who requested this restore can answer it.", Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(ba.UserID)}}
	}

	return &tkscot.Answer{Text: "⌛ This restore request is no longer pending.", Options: []tkscot.AnswerOption{tkscot.AnswerReplaceOriginal()}}
}

// notifyRestoreExpired tells the requester of a restore that it timed out
func (tk *Teamkill) notifyRestoreExpired(p restore.Pending) {
	channelID := tk.forgetOrigin(p.ID)
	if channelID == "" || tk.ChatPoster == nil {
		return
	}

	text := fmt.Sprintf("⌛ The restore request timed out after %s, the store was left untouched.", tk.restoreWindow)
	if _, err := tk.ChatPoster.PostEphemeral(channelID, p.Requester.ID, slack.MsgOptionText(text, false)); err != nil {
		tk.Logger.Printf("[%s] Error notifying [%s] of restore [%s] timeout: %v", TeamkillPluginName, p.Requester, p.ID, err)
	}
}

func (tk *Teamkill) showRecentLogs(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	entries, err := tk.log.Tail(recentLogEntries)
	if err != nil {
		return tk.errorAnswer(m, "read the log", err)
	}

	if len(entries) == 0 {
		return &tkscot.Answer{Text: "⚠️ No log entries recorded yet.", Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 *Latest entries:*\n```\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] [%s] %s\n", e.Time.Format(time.RFC3339), strings.ToUpper(string(e.Action)), e.Text())
	}
	fmt.Fprintf(&b, "```")

	by := tk.identify(m.User)
	tk.appendLog(ctx, auditlog.Entry{Actor: by, Action: auditlog.ActionLogs, Value: len(entries),
		Message: fmt.Sprintf("%s consulted the latest entries", by)})

	return &tkscot.Answer{Text: b.String(), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
}

func (tk *Teamkill) exportLogs(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	content, err := tk.log.Export(ctx)
	if errors.Is(err, auditlog.ErrNoLog) {
		return &tkscot.Answer{Text: "⚠️ No log entries recorded yet.", Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	} else if err != nil {
		return tk.errorAnswer(m, "export the log", err)
	}

	name := filepath.Base(tk.log.Path())
	if err = tk.upload(m, name, "text", content); err != nil {
		return tk.errorAnswer(m, "upload the log", err)
	}

	by := tk.identify(m.User)
	tk.appendLog(ctx, auditlog.Entry{Actor: by, Action: auditlog.ActionExportLogs,
		Message: fmt.Sprintf("%s exported %s", by, name)})

	return &tkscot.Answer{Text: fmt.Sprintf("📤 Here's `%s`.", name), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
}

func (tk *Teamkill) sync(m *tkscot.IncomingMessage) *tkscot.Answer {
	ctx, cancel := newContext()
	defer cancel()

	r := tk.backupTask.Run(ctx)

	by := tk.identify(m.User)
	tk.appendLog(ctx, auditlog.Entry{Actor: by, Action: auditlog.ActionSync,
		Message: fmt.Sprintf("%s forced a sync (%s)", by, r)})

	if r.Failed() {
		return &tkscot.Answer{Text: fmt.Sprintf("⚠️ Sync finished with failures: %s", r), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
	}

	return &tkscot.Answer{Text: fmt.Sprintf("🔁 Sync done: %s", r), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
}

// runBackup is the scheduled backup. Failures are logged by the backup task and never stop the next run
func (tk *Teamkill) runBackup() {
	ctx, cancel := newContext()
	defer cancel()

	tk.backupTask.Run(ctx)
}

func (tk *Teamkill) upload(m *tkscot.IncomingMessage, name string, fileType string, content []byte) (err error) {
	_, err = tk.FileUploader.UploadFile(slack.FileUploadParameters{
		Filename: name,
		Filetype: fileType,
		Title:    name,
		Reader:   bytes.NewReader(content),
		Channels: []string{m.Channel},
	}, tkscot.UploadInThreadOption(m))

	return err
}

func (tk *Teamkill) appendLog(ctx context.Context, e auditlog.Entry) {
	if err := tk.log.Append(ctx, e); err != nil {
		tk.Logger.Printf("[%s] Error appending [%s] to log: %v", TeamkillPluginName, e.Action, err)
	}
}

func (tk *Teamkill) errorAnswer(m *tkscot.IncomingMessage, what string, err error) *tkscot.Answer {
	tk.Logger.Printf("[%s] Failed to %s for [%s]: %v", TeamkillPluginName, what, m.User, err)

	return &tkscot.Answer{Text: fmt.Sprintf("❌ Failed to %s: %v", what, err), Options: []tkscot.AnswerOption{tkscot.AnswerEphemeral(m.User)}}
}
