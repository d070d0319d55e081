package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	"github.com/asterbyte/jarvis/pkg/types"
)

// clockFormat renders times the way the assistant speaks them ("03:04 PM").
const clockFormat = "03:04 PM"

// handlerFunc serves one routed command.
type handlerFunc func(ctx context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error)

func (d *Dispatcher) handleAutomation(ctx context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	action := a.Entities[nlp.EntityAction]
	target := a.Entities[nlp.EntityTarget]

	result, err := d.automation.ExecuteAutomation(ctx, action, target, ec.SystemStatus)
	if err != nil {
		return types.Response{}, fmt.Errorf("dispatch: automation %q on %q: %w", action, target, err)
	}

	text := result.Message
	if text == "" {
		text = "Automation executed successfully"
	}
	return types.Response{
		Text:       text,
		Action:     "automation",
		Data:       result.Data,
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}

func (d *Dispatcher) handleInformation(ctx context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	subject := a.Entities[nlp.EntitySubject]

	var text string
	data := map[string]any{}
	switch a.Entities[nlp.EntityQueryType] {
	case "time":
		text = "The current time is " + ec.Now.Format(clockFormat)
		data["time"] = ec.Now

	case "weather":
		location := subject
		if location == "" {
			location = ec.Location
		}
		if location == "" {
			location = "your location"
		}
		text = fmt.Sprintf("Weather information for %s is not available right now.", location)
		data["location"] = location

	case "news":
		topic := subject
		if topic == "" {
			topic = "today"
		}
		text = fmt.Sprintf("Latest news about %s is not available right now.", topic)
		data["topic"] = topic

	default:
		text = d.generalInfo(ctx, subject)
		data["query"] = subject
	}

	return types.Response{
		Text:       text,
		Action:     "information",
		Data:       data,
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}

// generalInfo answers a free-form query via the analyzer's Answerer extension
// when available, falling back to a polite stub.
func (d *Dispatcher) generalInfo(ctx context.Context, query string) string {
	if ans, ok := d.nlp.(nlp.Answerer); ok && query != "" {
		if text, err := ans.Answer(ctx, query); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	if query == "" {
		query = "that"
	}
	return fmt.Sprintf("I don't have specific information about %s right now.", query)
}

func (d *Dispatcher) handleSystemControl(ctx context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	action := a.Entities[nlp.EntityAction]
	target := a.Entities[nlp.EntityTarget]

	result, err := d.automation.ExecuteSystemCommand(ctx, action, target)
	if err != nil {
		return types.Response{}, fmt.Errorf("dispatch: system command %q on %q: %w", action, target, err)
	}

	text := result.Message
	if text == "" {
		text = "System command executed"
	}
	return types.Response{
		Text:       text,
		Action:     "system_control",
		Data:       result.Data,
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}

func (d *Dispatcher) handleEntertainment(ctx context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	action := a.Entities[nlp.EntityAction]
	if action == "" {
		action = "play"
	}
	target := a.Entities[nlp.EntityTarget]
	if target == "" {
		target = "media"
	}

	result, err := d.automation.ExecuteAutomation(ctx, action, target, ec.SystemStatus)
	if err != nil {
		return types.Response{}, fmt.Errorf("dispatch: entertainment %q on %q: %w", action, target, err)
	}

	text := result.Message
	if text == "" {
		text = "Entertainment control executed"
	}
	return types.Response{
		Text:       text,
		Action:     "entertainment",
		Data:       result.Data,
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}

func (d *Dispatcher) handleProductivity(_ context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	subject := a.Entities[nlp.EntitySubject]
	if subject == "" {
		subject = a.Entities[nlp.EntityTarget]
	}

	text := "I've noted that."
	if subject != "" {
		text = fmt.Sprintf("I've added %s to your tasks.", subject)
	}
	return types.Response{
		Text:       text,
		Action:     "productivity",
		Data:       map[string]any{"task": subject},
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}

func (d *Dispatcher) handlePersonal(_ context.Context, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	name := ec.Preferences["name"]

	text := "I'm doing well and at your service."
	if name != "" {
		text = fmt.Sprintf("I'm doing well and at your service, %s.", name)
	}
	return types.Response{
		Text:       text,
		Action:     "personal",
		Confidence: a.Confidence,
		Timestamp:  ec.Now,
	}, nil
}
