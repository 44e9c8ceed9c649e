package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
	"github.com/frc6135/orgbot/internal/biz/usecase"
	"github.com/frc6135/orgbot/internal/conf"
)

// CommandService implements the built-in commands.
type CommandService struct {
	config       *usecase.ConfigUsecase
	watch        *usecase.WatchUsecase
	moderation   *domain.ModerationTable
	access       *usecase.AccessUsecase
	chatRepo     repo.ChatRepo
	messages     *conf.MessagesConfig
	maintainerID string
	registry     *Registry
}

// NewCommandService creates the command service and registers every built-in
// command on a fresh registry.
func NewCommandService(
	config *usecase.ConfigUsecase,
	watch *usecase.WatchUsecase,
	moderation *domain.ModerationTable,
	access *usecase.AccessUsecase,
	chatRepo repo.ChatRepo,
	messages *conf.MessagesConfig,
	maintainerID string,
) *CommandService {
	s := &CommandService{
		config:       config,
		watch:        watch,
		moderation:   moderation,
		access:       access,
		chatRepo:     chatRepo,
		messages:     messages,
		maintainerID: maintainerID,
		registry:     NewRegistry(),
	}
	s.registerAll()
	return s
}

// Registry returns the populated command registry.
func (s *CommandService) Registry() *Registry {
	return s.registry
}

func (s *CommandService) registerAll() {
	register := s.registry.Register
	register(&Command{Name: "ping", Level: domain.LevelEveryone,
		Help: "Check if the bot is alive.", Handler: s.cmdPing})
	register(&Command{Name: "help", Level: domain.LevelEveryone,
		Help: "List commands, or show help for one command.", Handler: s.cmdHelp})
	register(&Command{Name: "watch", Level: domain.LevelEveryone,
		Help: "Configure your keyword watches.", Handler: s.cmdWatch})
	register(&Command{Name: "roles", Level: domain.LevelEveryone,
		Help: "List roles, or the roles of a user.", Handler: s.cmdRoles})
	register(&Command{Name: "mute", Level: domain.LevelForumAdmin,
		Help: "Mute a user in this chat, optionally for a number of seconds.", Handler: s.cmdMute})
	register(&Command{Name: "unmute", Level: domain.LevelForumAdmin,
		Help: "Unmute a user in this chat.", Handler: s.cmdUnmute})
	register(&Command{Name: "timeout", Level: domain.LevelOrgAdmin,
		Help: "Put a user in timeout in this chat for a number of seconds.", Handler: s.cmdTimeout})
	register(&Command{Name: "untimeout", Level: domain.LevelOrgAdmin,
		Help: "Remove a user's timeout in this chat.", Handler: s.cmdUntimeout})
	register(&Command{Name: "readOnly", Level: domain.LevelOrgAdmin,
		Help: "Manage this chat's read-only mode.", Handler: s.cmdReadOnly})
	register(&Command{Name: "addToRole", Level: domain.LevelOrgAdmin,
		Help: "Add mentioned users to a role.", Handler: s.cmdAddToRole})
	register(&Command{Name: "removeFromRole", Level: domain.LevelOrgAdmin,
		Help: "Remove mentioned users from a role.", Handler: s.cmdRemoveFromRole})
	register(&Command{Name: "deleteRole", Level: domain.LevelOrgAdmin,
		Help: "Delete a role entirely.", Handler: s.cmdDeleteRole})
	register(&Command{Name: "alias", Level: domain.LevelOrgAdmin,
		Help: "Create, delete or list command aliases.", Handler: s.cmdAlias})
	register(&Command{Name: "accessRule", Level: domain.LevelOrgAdmin,
		Help: "View or edit the access rule of a command.", Handler: s.cmdAccessRule})
	register(&Command{Name: "announce", Level: domain.LevelOrgAdmin,
		Help: "Send a message to another chat.", Handler: s.cmdAnnounce})
}

func (s *CommandService) cmdPing(ctx context.Context, req *Request) (string, error) {
	return "Pong!", nil
}

func (s *CommandService) cmdHelp(ctx context.Context, req *Request) (string, error) {
	name := strings.TrimSpace(req.Args)
	if name != "" {
		info, ok := s.registry.commands[name]
		if !ok {
			return "", &CommandError{Message: fmt.Sprintf("No command named %q.", name)}
		}
		help := info.Help
		if notice := info.Level.Describe(); notice != "" {
			help += "\n" + notice
		}
		return help, nil
	}
	var sb strings.Builder
	sb.WriteString("Available commands:")
	for _, cmdName := range s.registry.Names() {
		cmd := s.registry.commands[cmdName]
		fmt.Fprintf(&sb, "\n- `%s` - %s", cmd.Name, cmd.Help)
	}
	return sb.String(), nil
}

func (s *CommandService) cmdWatch(ctx context.Context, req *Request) (string, error) {
	args, err := splitArgs(req.Args)
	if err != nil {
		return "", &CommandError{Message: "Invalid syntax: " + err.Error()}
	}
	if len(args) == 0 {
		return s.describeWatch(req.UserID), nil
	}

	switch args[0] {
	case "on", "off":
		on := args[0] == "on"
		err := s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
			w.On = on
			return nil
		})
		if err != nil {
			return "", err
		}
		if on {
			return "Keyword watch notifications turned **on**.", nil
		}
		return "Keyword watch notifications turned **off**.", nil

	case "add":
		if len(args) < 2 {
			return "", &CommandError{Message: "Usage: watch add <keyword> [match-case] [match-whole-word]"}
		}
		kw := domain.Keyword{Text: args[1]}
		if len(args) >= 3 {
			if kw.MatchCase, err = parseBool(args[2]); err != nil {
				return "", &CommandError{Message: err.Error()}
			}
		}
		if len(args) >= 4 {
			if kw.WholeWord, err = parseBool(args[3]); err != nil {
				return "", &CommandError{Message: err.Error()}
			}
		}
		err := s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
			w.Keywords = append(w.Keywords, kw)
			return nil
		})
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				return "", &CommandError{Message: verr.Message}
			}
			return "", err
		}
		return fmt.Sprintf("Added watch for keyword %q.", kw.Text), nil

	case "delete":
		if len(args) < 2 {
			return "", &CommandError{Message: "Usage: watch delete <keyword-number>|all"}
		}
		if args[1] == "all" {
			err := s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
				w.Keywords = nil
				return nil
			})
			if err != nil {
				return "", err
			}
			return "Deleted all your keyword watches.", nil
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return "", &CommandError{Message: "The keyword number must be an integer or \"all\"."}
		}
		var deleted string
		err = s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
			if n < 1 || n > len(w.Keywords) {
				return &domain.ValidationError{Message: fmt.Sprintf("Keyword number out of range: %d.", n)}
			}
			deleted = w.Keywords[n-1].Text
			w.Keywords = append(w.Keywords[:n-1], w.Keywords[n:]...)
			return nil
		})
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				return "", &CommandError{Message: verr.Message}
			}
			return "", err
		}
		return fmt.Sprintf("Deleted watch for keyword %q.", deleted), nil

	case "activityTimeout":
		if len(args) < 2 {
			return "", &CommandError{Message: "Usage: watch activityTimeout <seconds>"}
		}
		seconds, err := strconv.Atoi(args[1])
		if err != nil || seconds < 0 {
			return "", &CommandError{Message: "The timeout must be a non-negative number of seconds."}
		}
		err = s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
			w.ActivityTimeout = time.Duration(seconds) * time.Second
			return nil
		})
		if err != nil {
			return "", err
		}
		if seconds == 0 {
			return "Activity timeout disabled.", nil
		}
		return fmt.Sprintf("Activity timeout set to %d seconds.", seconds), nil

	case "suppress":
		if len(args) < 2 {
			return "", &CommandError{Message: "Usage: watch suppress <seconds>"}
		}
		seconds, err := strconv.Atoi(args[1])
		if err != nil || seconds < 0 {
			return "", &CommandError{Message: "The duration must be a non-negative number of seconds."}
		}
		err = s.watch.Update(ctx, req.UserID, func(w *domain.KeywordWatch) error {
			if seconds == 0 {
				w.SuppressedUntil = time.Time{}
			} else {
				w.SuppressedUntil = time.Now().Add(time.Duration(seconds) * time.Second)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		if seconds == 0 {
			return "Keyword watch notifications are no longer suppressed.", nil
		}
		return fmt.Sprintf("Keyword watch notifications suppressed for %d seconds.", seconds), nil

	default:
		return "", &CommandError{Message: fmt.Sprintf("Unknown sub-command %q.", args[0])}
	}
}

func (s *CommandService) describeWatch(userID string) string {
	watch := s.watch.Get(userID)
	var sb strings.Builder
	if watch.On {
		sb.WriteString("Your keyword watch notifications are turned **on**.")
	} else {
		sb.WriteString("Your keyword watch notifications are turned **off**.")
	}
	if watch.Suppressed(time.Now()) {
		fmt.Fprintf(&sb, "\nNotifications are suppressed until %s.", watch.SuppressedUntil.Format(time.Kitchen))
	}
	if watch.ActivityTimeout > 0 {
		fmt.Fprintf(&sb, "\nYour activity timeout is %d seconds.", int(watch.ActivityTimeout.Seconds()))
	} else {
		sb.WriteString("\nActivity timeout is disabled.")
	}
	if len(watch.Keywords) == 0 {
		sb.WriteString("\nYou do not have any keyword watches.")
	} else {
		sb.WriteString("\nYour keyword watches are:")
		for i, kw := range watch.Keywords {
			fmt.Fprintf(&sb, "\n%d. %q (match case: %v, whole word: %v)", i+1, kw.Text, kw.MatchCase, kw.WholeWord)
		}
	}
	return sb.String()
}

// targetUser resolves the single mentioned user a moderation command acts on.
func (s *CommandService) targetUser(ctx context.Context, req *Request) (*domain.User, error) {
	if len(req.Mentions) != 1 {
		return nil, &CommandError{Message: "Please @-mention exactly one user."}
	}
	user, err := s.chatRepo.GetUser(ctx, req.Mentions[0])
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// requireHigherLevel guards moderation of a user who could themselves run the
// command: the issuer must outrank them.
func (s *CommandService) requireHigherLevel(ctx context.Context, req *Request, target *domain.User, cmdLevel domain.AccessLevel) error {
	targetLevel, err := s.access.Level(ctx, req.ChatID, target.ID)
	if err != nil {
		return fmt.Errorf("resolve target level: %w", err)
	}
	if targetLevel < cmdLevel {
		return nil
	}
	issuerLevel, err := s.access.Level(ctx, req.ChatID, req.UserID)
	if err != nil {
		return fmt.Errorf("resolve issuer level: %w", err)
	}
	if issuerLevel > targetLevel {
		return nil
	}
	return &CommandError{Message: fmt.Sprintf("You need a higher access level than %s to do that.", target.Name)}
}

// bounceMuteMax caps the mute reflected onto whoever tries to mute the bot
// or the maintainer.
const bounceMuteMax = 60 * time.Second

func (s *CommandService) cmdMute(ctx context.Context, req *Request) (string, error) {
	user, err := s.targetUser(ctx, req)
	if err != nil {
		return "", err
	}
	var d time.Duration
	if fields := strings.Fields(req.Args); len(fields) > 0 {
		if seconds, convErr := strconv.Atoi(fields[len(fields)-1]); convErr == nil {
			if seconds < 0 {
				return "", &CommandError{Message: "The duration cannot be negative."}
			}
			d = time.Duration(seconds) * time.Second
		}
	}
	if user.ID == s.chatRepo.BotID() || user.ID == s.maintainerID {
		bounce := d
		if bounce <= 0 || bounce > bounceMuteMax {
			bounce = bounceMuteMax
		}
		s.moderation.Mute(req.ChatID, req.UserID, bounce)
		return fmt.Sprintf("Nice try. You are muted for %d seconds.", int(bounce.Seconds())), nil
	}
	if user.ID == req.UserID {
		if d <= 0 {
			return "", &CommandError{Message: "Provide a duration in seconds to mute yourself."}
		}
	} else if err := s.requireHigherLevel(ctx, req, user, domain.LevelForumAdmin); err != nil {
		return "", err
	}
	s.moderation.Mute(req.ChatID, user.ID, d)
	reply := fmt.Sprintf(s.messages.Moderation.Muted, user.Name)
	if d > 0 {
		reply += fmt.Sprintf(" (for %d seconds)", int(d.Seconds()))
	}
	return reply, nil
}

func (s *CommandService) cmdUnmute(ctx context.Context, req *Request) (string, error) {
	user, err := s.targetUser(ctx, req)
	if err != nil {
		return "", err
	}
	if !s.moderation.Clear(req.ChatID, user.ID, domain.ModerationMute) {
		return "", &CommandError{Message: fmt.Sprintf("%s is not muted in this chat.", user.Name)}
	}
	return fmt.Sprintf(s.messages.Moderation.Unmuted, user.Name), nil
}

func (s *CommandService) cmdTimeout(ctx context.Context, req *Request) (string, error) {
	user, err := s.targetUser(ctx, req)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(req.Args)
	if len(fields) == 0 {
		return "", &CommandError{Message: "Usage: timeout @user <seconds>"}
	}
	seconds, convErr := strconv.Atoi(fields[len(fields)-1])
	if convErr != nil {
		return "", &CommandError{Message: "The duration must be a number of seconds."}
	}
	if user.ID == s.chatRepo.BotID() {
		return "", &CommandError{Message: "I cannot be put in timeout."}
	}
	if user.ID != req.UserID {
		if err := s.requireHigherLevel(ctx, req, user, domain.LevelOrgAdmin); err != nil {
			return "", err
		}
	}
	err = s.moderation.Timeout(req.ChatID, user.ID, time.Duration(seconds)*time.Second)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return "", &CommandError{Message: verr.Message}
		}
		return "", err
	}
	return fmt.Sprintf(s.messages.Moderation.TimedOut, user.Name, fmt.Sprintf("%d seconds", seconds)), nil
}

func (s *CommandService) cmdUntimeout(ctx context.Context, req *Request) (string, error) {
	user, err := s.targetUser(ctx, req)
	if err != nil {
		return "", err
	}
	if !s.moderation.Clear(req.ChatID, user.ID, domain.ModerationTimeout) {
		return "", &CommandError{Message: fmt.Sprintf("%s is not in timeout in this chat.", user.Name)}
	}
	return fmt.Sprintf(s.messages.Moderation.Untimeout, user.Name), nil
}

func (s *CommandService) cmdReadOnly(ctx context.Context, req *Request) (string, error) {
	args, err := splitArgs(req.Args)
	if err != nil {
		return "", &CommandError{Message: "Invalid syntax: " + err.Error()}
	}
	if len(args) == 0 {
		return "", &CommandError{Message: "Usage: readOnly <allow|clear|list> [roles...]"}
	}
	switch args[0] {
	case "allow":
		roles := args[1:]
		if len(roles) == 0 {
			return "", &CommandError{Message: "Name at least one role allowed to post."}
		}
		cfg := s.config.Snapshot()
		var stored []string
		for _, role := range roles {
			name, _, ok := cfg.LookupRole(role)
			if !ok {
				return "", &CommandError{Message: fmt.Sprintf("No role named %q.", role)}
			}
			stored = append(stored, name)
		}
		var allowed []string
		err := s.config.Update(ctx, func(cfg *domain.BotConfig) error {
			current := cfg.ReadOnlyChats[req.ChatID]
			for _, name := range stored {
				current = appendUnique(current, name)
			}
			cfg.ReadOnlyChats[req.ChatID] = current
			allowed = current
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("This chat is read-only. Only members of %s may post.", strings.Join(allowed, ", ")), nil

	case "clear":
		// A bare clear lifts read-only mode; clearing named roles keeps the
		// mode, even when no allowed roles remain.
		roles := args[1:]
		err := s.config.Update(ctx, func(cfg *domain.BotConfig) error {
			if len(roles) == 0 {
				delete(cfg.ReadOnlyChats, req.ChatID)
				return nil
			}
			current := cfg.ReadOnlyChats[req.ChatID]
			for _, role := range roles {
				current = removeStringFold(current, role)
			}
			cfg.ReadOnlyChats[req.ChatID] = current
			return nil
		})
		if err != nil {
			return "", err
		}
		if len(roles) == 0 {
			return "This chat is no longer read-only.", nil
		}
		return fmt.Sprintf("Removed %s from the allowed roles.", strings.Join(roles, ", ")), nil

	case "list":
		cfg := s.config.Snapshot()
		if !cfg.IsReadOnly(req.ChatID) {
			return "This chat is not read-only.", nil
		}
		roles := cfg.ReadOnlyChats[req.ChatID]
		if len(roles) == 0 {
			return "This chat is read-only. Nobody may post.", nil
		}
		return "This chat is read-only. Roles allowed to post: " + strings.Join(roles, ", "), nil

	default:
		return "", &CommandError{Message: fmt.Sprintf("Unknown sub-command %q.", args[0])}
	}
}

func (s *CommandService) cmdRoles(ctx context.Context, req *Request) (string, error) {
	cfg := s.config.Snapshot()
	if len(req.Mentions) == 1 {
		user, err := s.chatRepo.GetUser(ctx, req.Mentions[0])
		if err != nil {
			return "", fmt.Errorf("resolve user: %w", err)
		}
		roles := cfg.RolesOf(user.ID)
		if len(roles) == 0 {
			return fmt.Sprintf("%s has no roles.", user.Name), nil
		}
		return fmt.Sprintf("%s has roles: %s", user.Name, strings.Join(roles, ", ")), nil
	}
	if len(cfg.Roles) == 0 {
		return "There are no roles.", nil
	}
	var sb strings.Builder
	sb.WriteString("Roles:")
	for role, members := range cfg.Roles {
		fmt.Fprintf(&sb, "\n- %s (%d members)", role, len(members))
	}
	return sb.String(), nil
}

func (s *CommandService) cmdAddToRole(ctx context.Context, req *Request) (string, error) {
	role, err := s.roleArg(req)
	if err != nil {
		return "", err
	}
	if !domain.ValidRoleName(role) {
		return "", &CommandError{Message: "Role names may only contain letters, digits and underscores."}
	}
	if len(req.Mentions) == 0 {
		return "", &CommandError{Message: "Please @-mention the users to add."}
	}
	err = s.config.Update(ctx, func(cfg *domain.BotConfig) error {
		for _, userID := range req.Mentions {
			cfg.AddToRole(role, userID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %d user(s) to role %s.", len(req.Mentions), role), nil
}

func (s *CommandService) cmdRemoveFromRole(ctx context.Context, req *Request) (string, error) {
	role, err := s.roleArg(req)
	if err != nil {
		return "", err
	}
	if len(req.Mentions) == 0 {
		return "", &CommandError{Message: "Please @-mention the users to remove."}
	}
	var removed int
	err = s.config.Update(ctx, func(cfg *domain.BotConfig) error {
		for _, userID := range req.Mentions {
			if cfg.RemoveFromRole(role, userID) {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if removed == 0 {
		return "", &CommandError{Message: fmt.Sprintf("None of the mentioned users had the role %s.", role)}
	}
	return fmt.Sprintf("Removed %d user(s) from role %s.", removed, role), nil
}

func (s *CommandService) cmdDeleteRole(ctx context.Context, req *Request) (string, error) {
	role, err := s.roleArg(req)
	if err != nil {
		return "", err
	}
	var deleted bool
	err = s.config.Update(ctx, func(cfg *domain.BotConfig) error {
		deleted = cfg.DeleteRole(role)
		return nil
	})
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", &CommandError{Message: fmt.Sprintf("No role named %q.", role)}
	}
	return fmt.Sprintf("Deleted role %s.", role), nil
}

// roleArg extracts the role name: the first argument token that is not a
// mention placeholder.
func (s *CommandService) roleArg(req *Request) (string, error) {
	for _, field := range strings.Fields(req.Args) {
		if !strings.HasPrefix(field, "@") {
			return field, nil
		}
	}
	return "", &CommandError{Message: "Please name a role."}
}

func (s *CommandService) cmdAlias(ctx context.Context, req *Request) (string, error) {
	args, err := splitArgs(req.Args)
	if err != nil {
		return "", &CommandError{Message: "Invalid syntax: " + err.Error()}
	}
	if len(args) == 0 {
		return "", &CommandError{Message: "Usage: alias <create|delete|list> [args]"}
	}
	switch args[0] {
	case "create":
		if len(args) < 3 {
			return "", &CommandError{Message: "Usage: alias create <from> <to>"}
		}
		from := args[1]
		to := strings.Join(args[2:], " ")
		err := s.config.Update(ctx, func(cfg *domain.BotConfig) error {
			for _, alias := range cfg.Aliases {
				if alias.From == from {
					return &domain.ValidationError{Message: fmt.Sprintf("An alias named %q already exists.", from)}
				}
			}
			cfg.Aliases = append(cfg.Aliases, domain.Alias{From: from, To: to})
			return nil
		})
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				return "", &CommandError{Message: verr.Message}
			}
			return "", err
		}
		return fmt.Sprintf("Alias created: %s -> %s", from, to), nil

	case "delete":
		if len(args) < 2 {
			return "", &CommandError{Message: "Usage: alias delete <from>"}
		}
		from := args[1]
		var found bool
		err := s.config.Update(ctx, func(cfg *domain.BotConfig) error {
			for i, alias := range cfg.Aliases {
				if alias.From == from {
					cfg.Aliases = append(cfg.Aliases[:i], cfg.Aliases[i+1:]...)
					found = true
					return nil
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		if !found {
			return "", &CommandError{Message: fmt.Sprintf("No alias named %q.", from)}
		}
		return fmt.Sprintf("Alias deleted: %s", from), nil

	case "list":
		aliases := s.config.Snapshot().Aliases
		if len(aliases) == 0 {
			return "There are no aliases.", nil
		}
		var sb strings.Builder
		sb.WriteString("Aliases:")
		for _, alias := range aliases {
			fmt.Fprintf(&sb, "\n- %s -> %s", alias.From, alias.To)
		}
		return sb.String(), nil

	default:
		return "", &CommandError{Message: fmt.Sprintf("Unknown sub-command %q.", args[0])}
	}
}

func (s *CommandService) cmdAccessRule(ctx context.Context, req *Request) (string, error) {
	args, err := splitArgs(req.Args)
	if err != nil {
		return "", &CommandError{Message: "Invalid syntax: " + err.Error()}
	}
	if len(args) == 0 {
		return "", &CommandError{Message: "Usage: accessRule <command> [<field> <add|remove|set|clear> [values...]]"}
	}
	command := args[0]
	if _, ok := s.registry.commands[command]; !ok {
		return "", &CommandError{Message: fmt.Sprintf("No command named %q.", command)}
	}

	if len(args) == 1 {
		rule := s.config.Snapshot().AccessRules[command]
		if rule.Empty() {
			return fmt.Sprintf("The command %s has no access rule.", command), nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Access rule for %s:", command)
		if rule.Level != nil {
			fmt.Fprintf(&sb, "\n- level: %s", *rule.Level)
		}
		if len(rule.AllowUsers) > 0 {
			fmt.Fprintf(&sb, "\n- allowUser: %s", strings.Join(rule.AllowUsers, ", "))
		}
		if len(rule.DisallowUsers) > 0 {
			fmt.Fprintf(&sb, "\n- disallowUser: %s", strings.Join(rule.DisallowUsers, ", "))
		}
		if len(rule.AllowRoles) > 0 {
			fmt.Fprintf(&sb, "\n- allowRole: %s", strings.Join(rule.AllowRoles, ", "))
		}
		if len(rule.DisallowRoles) > 0 {
			fmt.Fprintf(&sb, "\n- disallowRole: %s", strings.Join(rule.DisallowRoles, ", "))
		}
		return sb.String(), nil
	}

	if len(args) < 3 {
		return "", &CommandError{Message: "Usage: accessRule <command> <field> <add|remove|set|clear> [values...]"}
	}
	field, action, values := args[1], args[2], args[3:]

	// Users are given by mention, not by argument token
	if field == "allowUser" || field == "disallowUser" {
		values = req.Mentions
	}

	err = s.config.Update(ctx, func(cfg *domain.BotConfig) error {
		rule := cfg.AccessRules[command]
		if rule == nil {
			rule = &domain.AccessRule{}
		}
		switch field {
		case "level":
			switch action {
			case "set":
				if len(values) != 1 {
					return &domain.ValidationError{Message: "Usage: accessRule <command> level set <0-4>"}
				}
				level, err := domain.ParseAccessLevel(values[0])
				if err != nil {
					return err
				}
				rule.Level = &level
			case "clear":
				rule.Level = nil
			default:
				return &domain.ValidationError{Message: "The level field supports set and clear."}
			}
		case "allowUser", "disallowUser", "allowRole", "disallowRole":
			target := map[string]*[]string{
				"allowUser":    &rule.AllowUsers,
				"disallowUser": &rule.DisallowUsers,
				"allowRole":    &rule.AllowRoles,
				"disallowRole": &rule.DisallowRoles,
			}[field]
			switch action {
			case "add":
				if len(values) == 0 {
					return &domain.ValidationError{Message: "Nothing to add."}
				}
				for _, v := range values {
					*target = appendUnique(*target, v)
				}
			case "remove":
				if len(values) == 0 {
					return &domain.ValidationError{Message: "Nothing to remove."}
				}
				for _, v := range values {
					*target = removeString(*target, v)
				}
			default:
				return &domain.ValidationError{Message: fmt.Sprintf("The %s field supports add and remove.", field)}
			}
		default:
			return &domain.ValidationError{Message: fmt.Sprintf("Unknown field %q.", field)}
		}
		if rule.Empty() {
			delete(cfg.AccessRules, command)
		} else {
			cfg.AccessRules[command] = rule
		}
		return nil
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return "", &CommandError{Message: verr.Message}
		}
		return "", err
	}
	return fmt.Sprintf("Access rule for %s updated.", command), nil
}

func (s *CommandService) cmdAnnounce(ctx context.Context, req *Request) (string, error) {
	args, err := splitArgs(req.Args)
	if err != nil {
		return "", &CommandError{Message: "Invalid syntax: " + err.Error()}
	}
	if len(args) < 2 {
		return "", &CommandError{Message: "Usage: announce <chat> <message>"}
	}
	ref, err := domain.ParseChatRef(args[0])
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return "", &CommandError{Message: verr.Message}
		}
		return "", err
	}
	chatID, err := s.chatRepo.ResolveChat(ctx, ref)
	if err != nil {
		return "", &CommandError{Message: "Could not find that chat: " + err.Error()}
	}
	text := strings.Join(args[1:], " ")
	if err := s.chatRepo.SendMessage(ctx, chatID, text); err != nil {
		return "", fmt.Errorf("send announcement: %w", err)
	}
	name, err := s.chatRepo.ChatName(ctx, chatID)
	if err != nil {
		name = chatID
	}
	return fmt.Sprintf("Message sent to %s.", name), nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func removeString(list []string, v string) []string {
	for i, existing := range list {
		if existing == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeStringFold(list []string, v string) []string {
	for i, existing := range list {
		if strings.EqualFold(existing, v) {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
