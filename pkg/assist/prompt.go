// Package assist builds assistant prompts and parses assistant replies.
// Nothing here performs I/O.
package assist

import (
	"fmt"
	"strings"
	"time"

	"github.com/gurkanbulca/barakaflow/pkg/llm"
)

const (
	Temperature         = 0.7
	SuggestionMaxTokens = 500
	DayMaxTokens        = 800
	ChatMaxTokens       = 500

	// recentUpdates is how many of the latest updates go into a task prompt.
	recentUpdates = 5
)

const (
	suggestionSystemPrompt = "You are a helpful task management assistant. Provide practical, actionable advice for tasks. Always respond with valid JSON only, no additional text."
	daySystemPrompt        = "You are an expert productivity and energy management coach. Provide practical, actionable advice for optimizing daily schedules. Always respond with valid JSON only, no additional text."
	taskChatSystemPrompt   = "You are an expert productivity assistant helping with a specific task. You have access to the task's full context including title, description, owner, status, timeline, and update history. Provide specific, actionable advice based on the conversation history and task context."
	dayChatSystemPrompt    = "You are an expert productivity and energy management coach. Analyze the user's schedule for today and provide optimization recommendations focused on breaks, energy management, and maintaining peak performance throughout the day."
)

// UpdateContext is one entry of a task's update history.
type UpdateContext struct {
	Author    string
	Content   string
	Timestamp time.Time
	Likes     int
}

// TaskContext is everything the assistant sees about a task.
type TaskContext struct {
	Title       string
	Description string
	Owner       string
	Status      string
	StartTime   *time.Time
	EndTime     *time.Time
	Updates     []UpdateContext
}

// DayTask is one scheduled task in a day plan.
type DayTask struct {
	Title       string
	Description string
	StartTime   *time.Time
	EndTime     *time.Time
}

// FormatTaskContext renders the task block shared by suggestion and chat prompts.
func FormatTaskContext(tc TaskContext, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Task Title: \"%s\"\n", tc.Title)
	if tc.Description != "" {
		fmt.Fprintf(&b, "Description: \"%s\"\n", tc.Description)
	}
	owner := tc.Owner
	if owner == "" {
		owner = "You"
	}
	fmt.Fprintf(&b, "Owner: %s\n", owner)
	fmt.Fprintf(&b, "Status: %s", tc.Status)

	if tc.StartTime != nil && tc.EndTime != nil {
		const layout = "Jan 2, 3:04 PM"
		fmt.Fprintf(&b, "\nTimeline: %s - %s", tc.StartTime.In(loc).Format(layout), tc.EndTime.In(loc).Format(layout))
	}

	if n := len(tc.Updates); n > 0 {
		recent := tc.Updates[max(0, n-recentUpdates):]
		b.WriteString("\n\nRecent Update History:")
		for i, u := range recent {
			fmt.Fprintf(&b, "\n%d. [%s] %s: %s", i+1, u.Timestamp.In(loc).Format("Jan 2, 3:04 PM"), u.Author, u.Content)
		}
	}
	return b.String()
}

// FormatDaySchedule renders the numbered schedule used by day prompts.
func FormatDaySchedule(tasks []DayTask, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	const layout = "3:04 PM"
	entries := make([]string, 0, len(tasks))
	for i, t := range tasks {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. \"%s\"", i+1, t.Title)
		if t.Description != "" {
			fmt.Fprintf(&b, " (%s)", t.Description)
		}
		switch {
		case t.StartTime != nil && t.EndTime != nil:
			minutes := int(t.EndTime.Sub(*t.StartTime).Round(time.Minute).Minutes())
			fmt.Fprintf(&b, "\n   Time: %s - %s (%d minutes)", t.StartTime.In(loc).Format(layout), t.EndTime.In(loc).Format(layout), minutes)
		case t.StartTime != nil:
			fmt.Fprintf(&b, "\n   Time: %s", t.StartTime.In(loc).Format(layout))
		}
		entries = append(entries, b.String())
	}
	return strings.Join(entries, "\n\n")
}

// SuggestionRequest builds the completion request for task suggestions.
func SuggestionRequest(tc TaskContext, loc *time.Location) llm.Request {
	prompt := fmt.Sprintf(`You are an expert productivity assistant. Analyze the following task with all its context and provide personalized, specific suggestions.

%s

Based on ALL the information provided (title, description, owner, status, timeline, and update history), provide helpful assistance in the following JSON format:
{
  "tips": ["tip1", "tip2", "tip3"],
  "suggestions": ["suggestion1", "suggestion2", "suggestion3"],
  "approach": "A step-by-step approach on how to tackle this task"
}

Guidelines:
- Make suggestions SPECIFIC to this task, not generic advice
- Consider the task's current status (%s) when providing advice
- If there's a timeline, consider time management and scheduling
- If there are updates, consider the conversation history and context
- If there's an owner, tailor suggestions for that person
- Keep tips and suggestions concise (1 sentence each)
- The approach should be 2-3 sentences
- Be practical, actionable, and encouraging`, FormatTaskContext(tc, loc), tc.Status)

	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: suggestionSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: Temperature,
		MaxTokens:   SuggestionMaxTokens,
	}
}

// DayRequest builds the completion request for day optimization.
func DayRequest(tasks []DayTask, loc *time.Location) llm.Request {
	prompt := fmt.Sprintf(`You are an expert productivity and energy management coach. Analyze the user's schedule for today and provide optimization recommendations focused on breaks, energy management, and maintaining peak performance throughout the day.

Here is the user's schedule for today:
%s

Provide your response in JSON format:
{
  "summary": "A brief 2-3 sentence overview of the day's schedule and overall energy optimization strategy",
  "breakSuggestions": ["specific break suggestion 1 with timing", "specific break suggestion 2 with timing", "specific break suggestion 3 with timing"],
  "energyManagement": ["energy management tip 1", "energy management tip 2", "energy management tip 3"],
  "actionableSteps": ["actionable step 1", "actionable step 2", "actionable step 3"]
}

Guidelines:
- Focus on WHEN and HOW to take breaks to maintain energy
- Consider the timing and duration of tasks when suggesting breaks
- Provide specific, actionable recommendations (not generic advice)
- Suggest optimal break timing between tasks
- Consider energy levels throughout the day (morning, afternoon, evening)
- Keep each suggestion concise (1-2 sentences)
- Make recommendations practical and easy to implement
- Consider task intensity and suggest appropriate break activities`, FormatDaySchedule(tasks, loc))

	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: daySystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: Temperature,
		MaxTokens:   DayMaxTokens,
	}
}

// TaskChatRequest builds a follow-up chat request about a single task.
func TaskChatRequest(tc TaskContext, loc *time.Location, history []ChatTurn, message string) llm.Request {
	context := FormatTaskContext(tc, loc)
	return chatRequest(taskChatSystemPrompt, context, taskChatSystemPrompt+"\n\nTask Context:\n"+context, history, message)
}

// DayChatRequest builds a follow-up chat request about a day's schedule.
func DayChatRequest(tasks []DayTask, loc *time.Location, history []ChatTurn, message string) llm.Request {
	context := "Today's Schedule:\n" + FormatDaySchedule(tasks, loc)
	return chatRequest(dayChatSystemPrompt, context, dayChatSystemPrompt+"\n\n"+context, history, message)
}

func chatRequest(systemPrompt, context, systemMessage string, history []ChatTurn, message string) llm.Request {
	kept := TruncateConversation(systemPrompt, context, history, MaxConversationTokens)

	msgs := make([]llm.Message, 0, len(kept)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemMessage})
	for _, turn := range kept {
		role := llm.RoleAssistant
		if turn.Role == llm.RoleUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: turn.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	return llm.Request{
		Messages:    msgs,
		Temperature: Temperature,
		MaxTokens:   ChatMaxTokens,
	}
}
