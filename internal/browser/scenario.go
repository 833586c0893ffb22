package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Step actions.
const (
	ActionFill   = "fill"
	ActionClick  = "click"
	ActionExpect = "expect"
)

// Step is one user gesture or check on an app page.
type Step struct {
	Action   string
	Selector string // fill, click
	Region   string // expect
	Value    string // text to type, or text the region must contain
}

func (s Step) validate() error {
	switch s.Action {
	case ActionFill:
		if s.Selector == "" {
			return fmt.Errorf("fill step needs a selector")
		}
	case ActionClick:
		if s.Selector == "" {
			return fmt.Errorf("click step needs a selector")
		}
	case ActionExpect:
		if s.Region == "" {
			return fmt.Errorf("expect step needs a region")
		}
	default:
		return fmt.Errorf("unknown step action %q", s.Action)
	}
	return nil
}

// Scenarios are the per-app smoke paths. Every one adds something visible, so they hold on a
// server that has already been used.
var Scenarios = map[string][]Step{
	"counter": {
		{Action: ActionClick, Selector: "#counter"},
		{Action: ActionExpect, Region: "counter", Value: "count is"},
	},
	"todos": {
		{Action: ActionExpect, Region: "status", Value: "MCP Ready"},
		{Action: ActionFill, Selector: "#input", Value: "smoke todo"},
		{Action: ActionClick, Selector: "#controls button[type=submit]"},
		{Action: ActionExpect, Region: "todos", Value: "smoke todo"},
	},
	"tasks": {
		{Action: ActionFill, Selector: `#controls input[name="title"]`, Value: "Smoke task"},
		{Action: ActionClick, Selector: "#controls button[type=submit]"},
		{Action: ActionExpect, Region: "task-list", Value: "Smoke task"},
	},
	"cart": {
		{Action: ActionFill, Selector: `#controls input[name="productId"]`, Value: "smoke-1"},
		{Action: ActionFill, Selector: `#controls input[name="name"]`, Value: "Smoke Widget"},
		{Action: ActionFill, Selector: `#controls input[name="price"]`, Value: "2.50"},
		{Action: ActionClick, Selector: "#controls button[type=submit]"},
		{Action: ActionExpect, Region: "cart-list", Value: "Smoke Widget"},
	},
}

// Run validates steps and plays them against page in order, stopping at the first failure.
func Run(ctx context.Context, page *Page, steps []Step) error {
	for i, step := range steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i, step := range steps {
		var err error
		switch step.Action {
		case ActionFill:
			err = page.Fill(step.Selector, step.Value)
		case ActionClick:
			err = page.Click(step.Selector)
		case ActionExpect:
			_, err = page.WaitRegion(ctx, step.Region, step.Value)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
		page.logger.Debug("step passed", zap.Int("step", i), zap.String("action", step.Action))
	}
	return nil
}
