package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

const (
	WorkoutPromptRef    = "daily_workout"
	NoTrainingPromptRef = "no_training_for_today"
	NoPlanPromptRef     = "no_plan_for_training"
)

// MediaResolver turns stored image keys into fetchable URLs. Signing and
// hosting are the resolver's concern.
type MediaResolver interface {
	Resolve(ctx context.Context, keys []string) ([]string, error)
}

// StaticMediaResolver serves images straight off a public base URL.
type StaticMediaResolver struct {
	BaseURL string
}

func (r StaticMediaResolver) Resolve(_ context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		urls = append(urls, strings.TrimRight(r.BaseURL, "/")+"/"+strings.TrimLeft(k, "/"))
	}
	return urls, nil
}

// Exercise is one entry of the generated workout. The model is not
// perfectly disciplined about types, so reps tolerates both strings and
// numbers.
type Exercise struct {
	Name         string     `json:"name"`
	Instructions string     `json:"instructions"`
	Sets         int        `json:"sets"`
	Reps         flexString `json:"reps"`
	Images       []string   `json:"images"`
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return fmt.Errorf("reps must be a string or a number")
}

// DailyWorkoutCommand turns today's schedule entry into a generated
// workout: one caption and media group per exercise. Days without an
// entry or without a plan get a short prompted notice instead.
type DailyWorkoutCommand struct {
	replies  ReplyFetcher
	delivery Delivery
	schedule store.ScheduleStore
	media    MediaResolver
	audit    store.MessageLog
	now      func() time.Time
	log      *slog.Logger
}

func NewDailyWorkoutCommand(replies ReplyFetcher, delivery Delivery, schedule store.ScheduleStore, media MediaResolver, audit store.MessageLog, log *slog.Logger) *DailyWorkoutCommand {
	if log == nil {
		log = slog.Default()
	}
	return &DailyWorkoutCommand{
		replies:  replies,
		delivery: delivery,
		schedule: schedule,
		media:    media,
		audit:    audit,
		now:      time.Now,
		log:      log,
	}
}

func (c *DailyWorkoutCommand) Name() string { return "daily_workout" }

func (c *DailyWorkoutCommand) CanHandle(text string, _ *Context) bool {
	return text == "/daily_workout"
}

func (c *DailyWorkoutCommand) Execute(ctx context.Context, ec *Context) error {
	day := store.DayCode(c.now())
	entry, err := c.schedule.UserScheduledForDay(ctx, day, ec.ChatID)
	if err != nil {
		return err
	}
	if entry == nil {
		return c.sendNotice(ctx, ec, NoTrainingPromptRef)
	}
	if len(entry.Plan) == 0 {
		return c.sendNotice(ctx, ec, NoPlanPromptRef)
	}

	promptRef := ec.PromptRef
	if promptRef == "" {
		promptRef = WorkoutPromptRef
	}
	reply, err := c.replies.FetchReply(ctx, runContext(ec), promptRef, map[string]any{
		"name": ec.DisplayName(),
		"plan": entry.Plan,
	})
	if err != nil {
		return err
	}

	exercises, err := parseExercises(reply)
	if err != nil {
		return err
	}
	for i, ex := range exercises {
		caption := formatExercise(i+1, ex)
		urls, err := c.media.Resolve(ctx, ex.Images)
		if err != nil {
			c.log.WarnContext(ctx, "media_resolve_failed", "exercise", ex.Name, "error", err)
			urls = nil
		}
		if len(urls) == 0 {
			err = c.delivery.SendMessage(ctx, ec.ChatID, caption)
		} else {
			err = c.delivery.SendMediaGroup(ctx, ec.ChatID, urls, caption)
		}
		if err != nil {
			return err
		}
	}
	recordDelivery(ctx, c.log, c.audit, ec.ChatID, reply, promptRef)
	return nil
}

func (c *DailyWorkoutCommand) sendNotice(ctx context.Context, ec *Context, promptRef string) error {
	reply, err := c.replies.FetchReply(ctx, runContext(ec), promptRef, map[string]any{
		"name": ec.DisplayName(),
	})
	if err != nil {
		return err
	}
	if err := c.delivery.SendMessage(ctx, ec.ChatID, reply); err != nil {
		return err
	}
	recordDelivery(ctx, c.log, c.audit, ec.ChatID, reply, promptRef)
	return nil
}

// parseExercises pulls the exercise array out of the model reply. The
// reply may wrap the JSON in prose or code fences, so only the outermost
// bracketed slice is parsed. Entries that do not decode, or decode
// without a name, are skipped.
func parseExercises(reply string) ([]Exercise, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, apperr.MalformedResponse("workout reply contains no exercise array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, apperr.MalformedResponse("workout reply is not a JSON array: %v", err)
	}
	exercises := make([]Exercise, 0, len(raw))
	for _, item := range raw {
		var ex Exercise
		if err := json.Unmarshal(item, &ex); err != nil || ex.Name == "" {
			continue
		}
		exercises = append(exercises, ex)
	}
	if len(exercises) == 0 {
		return nil, apperr.MalformedResponse("workout reply contains no usable exercises")
	}
	return exercises, nil
}

func formatExercise(n int, ex Exercise) string {
	var b strings.Builder
	b.WriteString(numberEmoji(n))
	b.WriteString(" ")
	b.WriteString(ex.Name)
	if ex.Sets > 0 {
		b.WriteString(" — ")
		b.WriteString(strconv.Itoa(ex.Sets))
		if ex.Reps != "" {
			b.WriteString(" x ")
			b.WriteString(string(ex.Reps))
		}
	}
	if ex.Instructions != "" {
		b.WriteString("\n")
		b.WriteString(ex.Instructions)
	}
	return b.String()
}

// numberEmoji renders n with keycap digits, e.g. 12 -> "1️⃣2️⃣".
func numberEmoji(n int) string {
	digits := strconv.Itoa(n)
	var b strings.Builder
	for _, d := range digits {
		b.WriteRune(d)
		b.WriteString("️⃣")
	}
	return b.String()
}
