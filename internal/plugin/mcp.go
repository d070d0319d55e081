package plugin

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// stopwords are tool-name fragments too generic to claim a command on.
var stopwords = map[string]bool{
	"get": true, "set": true, "run": true, "do": true, "the": true,
	"fetch": true, "query": true, "tool": true, "make": true,
}

// minKeywordLen filters out fragments like "a" or "to" that survive the
// stopword list.
const minKeywordLen = 4

// mcpPlugin exposes one remote MCP tool as a chain entry. It claims a
// command when any of its keywords appears in the command text.
type mcpPlugin struct {
	server   string
	tool     string
	keywords []string
	session  *mcpsdk.ClientSession
}

// Compile-time interface assertion.
var _ Plugin = (*mcpPlugin)(nil)

func (p *mcpPlugin) Name() string { return p.tool }

func (p *mcpPlugin) CanHandle(command string, _ map[string]string) bool {
	for _, kw := range p.keywords {
		if strings.Contains(command, kw) {
			return true
		}
	}
	return false
}

// Handle calls the remote tool with the command and extracted entities as
// arguments and concatenates all text content from the result.
func (p *mcpPlugin) Handle(ctx context.Context, command string, entities map[string]string) (string, error) {
	args := map[string]any{"command": command}
	for k, v := range entities {
		args[k] = v
	}

	result, err := p.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      p.tool,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call tool %q: %w", p.tool, err)
	}

	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("tool %q reported an error: %s", p.tool, sb.String())
	}
	return sb.String(), nil
}

// toolKeywords derives match keywords from a tool's name, e.g.
// "get_weather_forecast" yields ["weather", "forecast"]. Generic fragments
// are dropped; when nothing survives, the full underscore-joined name is the
// sole keyword so the tool stays reachable.
func toolKeywords(name, _ string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		if stopwords[part] || len(part) < minKeywordLen {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		out = []string{strings.ToLower(name)}
	}
	return out
}
