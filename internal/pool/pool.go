// Package pool applies the question-bank lifecycle after a generation run:
// assigning ids to new questions and deciding which questions stay active,
// which are archived and which are dropped.
package pool

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quizquotidien/quizgen/internal/types"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Policy decides how accepted questions are merged into a bank.
type Policy interface {
	// Name identifies the policy in logs and configuration.
	Name() string

	// Apply merges added into existing. Neither slice is modified.
	Apply(existing, archived, added []types.Question) Outcome
}

// Outcome is the state of the bank after a policy ran.
type Outcome struct {
	Active   []types.Question
	Archived []types.Question
	// Dropped counts questions removed from the bank entirely.
	Dropped int
	// PoolSize is recorded in the bank when the policy maintains a fixed pool.
	PoolSize int
}

// AssignIDs gives every question without an id a fresh one of the form
// q_<unix millis>_<index>_<6 hex> and stamps addedAt with now.
// Questions that already carry an id keep it.
func AssignIDs(added []types.Question, now time.Time) []types.Question {
	out := make([]types.Question, len(added))
	stamp := types.FormatTimestamp(now)
	for i, q := range added {
		if q.ID == "" {
			q.ID = fmt.Sprintf("q_%d_%d_%s", now.UnixMilli(), i, randomSuffix())
		}
		q.AddedAt = stamp
		out[i] = q
	}
	return out
}

// BackfillLegacy fills in ids and timestamps for questions stored before
// those fields existed: q_legacy_<index>_<first 10 chars, whitespace as _>.
func BackfillLegacy(existing []types.Question) []types.Question {
	out := make([]types.Question, len(existing))
	for i, q := range existing {
		if q.ID == "" {
			prefix := []rune(q.Text)
			if len(prefix) > 10 {
				prefix = prefix[:10]
			}
			q.ID = fmt.Sprintf("q_legacy_%d_%s", i, whitespaceRun.ReplaceAllString(string(prefix), "_"))
			if q.AddedAt == "" {
				q.AddedAt = types.LegacyAddedAt
			}
		}
		out[i] = q
	}
	return out
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// RotatingPolicy keeps the PoolSize most recent questions active and moves
// the rest to the archive, which is capped at ArchiveCap (oldest dropped).
type RotatingPolicy struct {
	PoolSize   int
	ArchiveCap int
}

// Name implements Policy.
func (p RotatingPolicy) Name() string { return "rotating" }

// Apply implements Policy. Active and archived questions are merged with the
// new ones and sorted newest first; ties keep their merge order.
func (p RotatingPolicy) Apply(existing, archived, added []types.Question) Outcome {
	all := make([]types.Question, 0, len(existing)+len(archived)+len(added))
	all = append(all, existing...)
	all = append(all, archived...)
	all = append(all, added...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].AddedTime().After(all[j].AddedTime())
	})

	poolSize := min(p.PoolSize, len(all))
	out := Outcome{
		Active:   all[:poolSize:poolSize],
		Archived: append([]types.Question{}, all[poolSize:]...),
		PoolSize: p.PoolSize,
	}
	if p.ArchiveCap >= 0 && len(out.Archived) > p.ArchiveCap {
		out.Dropped = len(out.Archived) - p.ArchiveCap
		out.Archived = out.Archived[:p.ArchiveCap]
	}
	return out
}

// CapPolicy appends new questions and keeps at most MaxTotal, dropping the
// oldest entries at the front of the list. Archived questions are untouched.
type CapPolicy struct {
	MaxTotal int
}

// Name implements Policy.
func (p CapPolicy) Name() string { return "cap" }

// Apply implements Policy.
func (p CapPolicy) Apply(existing, archived, added []types.Question) Outcome {
	all := make([]types.Question, 0, len(existing)+len(added))
	all = append(all, existing...)
	all = append(all, added...)

	out := Outcome{Archived: archived}
	if p.MaxTotal > 0 && len(all) > p.MaxTotal {
		out.Dropped = len(all) - p.MaxTotal
		all = all[out.Dropped:]
	}
	out.Active = all
	return out
}

// AppendPolicy appends new questions and never removes anything.
type AppendPolicy struct{}

// Name implements Policy.
func (AppendPolicy) Name() string { return "append" }

// Apply implements Policy.
func (AppendPolicy) Apply(existing, archived, added []types.Question) Outcome {
	all := make([]types.Question, 0, len(existing)+len(added))
	all = append(all, existing...)
	all = append(all, added...)
	return Outcome{Active: all, Archived: archived}
}

// New builds a policy by name ("rotating", "cap" or "append").
func New(name string, poolSize, archiveCap, maxTotal int) (Policy, error) {
	switch name {
	case "rotating", "":
		if poolSize <= 0 {
			return nil, fmt.Errorf("rotating policy needs a positive pool size (got %d)", poolSize)
		}
		return RotatingPolicy{PoolSize: poolSize, ArchiveCap: archiveCap}, nil
	case "cap":
		if maxTotal <= 0 {
			return nil, fmt.Errorf("cap policy needs a positive max total (got %d)", maxTotal)
		}
		return CapPolicy{MaxTotal: maxTotal}, nil
	case "append":
		return AppendPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown pool policy %q (want rotating, cap or append)", name)
	}
}
