package main

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/v-kyrychenko/ka4-today-bot/apperr"
	"github.com/v-kyrychenko/ka4-today-bot/assistant"
	"github.com/v-kyrychenko/ka4-today-bot/store"
)

// registerFunctions declares the local functions a run may call back
// into. chatId always arrives from the trusted run context, never from
// the model.
func registerFunctions(funcs *assistant.Functions, schedule store.ScheduleStore) error {
	return funcs.Register(assistant.FunctionSchema{
		Name:        "generateDailyWorkout",
		Description: "Get the user's training plan for a day of week. Returns whether a training is scheduled and the planned exercises per muscle group.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"chatId": {"type": "string", "description": "Chat id of the user."},
				"dayOfWeek": {"type": "string", "description": "Three-letter uppercase day code, e.g. MON. Defaults to today."}
			},
			"required": ["chatId"]
		}`),
	}, func(ctx context.Context, args map[string]any) (any, error) {
		chatRaw, _ := args["chatId"].(string)
		chatID, err := strconv.ParseInt(chatRaw, 10, 64)
		if err != nil {
			return nil, apperr.ClientInput("generateDailyWorkout: bad chatId %q", chatRaw)
		}
		day, _ := args["dayOfWeek"].(string)
		if day == "" {
			day = store.DayCode(time.Now())
		}
		entry, err := schedule.UserScheduledForDay(ctx, day, chatID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return map[string]any{"training": false, "dayOfWeek": day}, nil
		}
		return map[string]any{
			"training":  true,
			"dayOfWeek": day,
			"plan":      entry.Plan,
		}, nil
	})
}
