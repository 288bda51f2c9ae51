package service

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"

	monitorDomain "github.com/mirrelia/tweet-relay-bot/internal/modules/monitor/domain"
	"github.com/samber/lo"
)

// Target is one monitor inside a subscription, with its match pattern
// compiled once at build time.
type Target struct {
	Monitor monitorDomain.Monitor
	pattern *regexp.Regexp
}

// Matches reports whether the post text passes the target's filter.
// A target without a pattern matches everything.
func (t Target) Matches(text string) bool {
	return t.pattern == nil || t.pattern.MatchString(text)
}

// Subscription is the in-memory view the streaming core serves: the full
// registry snapshot grouped by account id, plus the deduplicated id list to
// request upstream. It is rebuilt from scratch on every registry change and
// replaced atomically, never patched.
type Subscription struct {
	byAccount map[int64][]Target
	ids       []string
}

// BuildSubscription derives a Subscription from a registry snapshot.
// Pure with respect to I/O; monitors whose stored pattern no longer
// compiles are dropped with an error log (patterns are validated at
// registration, so this indicates corrupted storage).
func BuildSubscription(monitors []monitorDomain.Monitor) *Subscription {
	byAccount := make(map[int64][]Target)
	for _, m := range monitors {
		target := Target{Monitor: m}
		if m.MatchPattern != "" {
			re, err := regexp.Compile(m.MatchPattern)
			if err != nil {
				slog.Error("Dropping monitor with uncompilable pattern",
					"channel_id", m.ChannelID, "account_id", m.AccountID,
					"pattern", m.MatchPattern, "error", err)
				continue
			}
			target.pattern = re
		}
		byAccount[m.AccountID] = append(byAccount[m.AccountID], target)
	}

	ids := lo.Map(lo.Keys(byAccount), func(id int64, _ int) string {
		return strconv.FormatInt(id, 10)
	})
	slices.Sort(ids)

	return &Subscription{byAccount: byAccount, ids: ids}
}

// Targets returns the monitors watching the given account, if any
func (s *Subscription) Targets(accountID int64) []Target {
	return s.byAccount[accountID]
}

// AccountIDs returns the distinct account ids to request upstream,
// stringified and sorted.
func (s *Subscription) AccountIDs() []string {
	return s.ids
}

// Empty reports whether there is nothing to subscribe to. An empty
// subscription must not open an upstream connection at all: a filter with
// zero ids would either match everything or be rejected upstream.
func (s *Subscription) Empty() bool {
	return len(s.ids) == 0
}
