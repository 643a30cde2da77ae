package builtin

import (
	"context"
	"strings"

	"github.com/voixagent/voixagent/plugin"
)

// ExampleName is the registered name of the example plugin.
const ExampleName = "example"

const exampleSuffix = " (Processed by Example Plugin!)"

// Example appends a marker to messages containing "hello".
type Example struct{}

func (Example) Name() string { return ExampleName }

func (Example) Process(_ context.Context, message string, _ plugin.TurnContext) (plugin.Result, error) {
	if strings.Contains(strings.ToLower(message), "hello") {
		return plugin.Pass(message + exampleSuffix), nil
	}
	return plugin.Pass(message), nil
}
