package approval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// TerminalTransport prompts on the controlling terminal.
type TerminalTransport struct {
	rl *readline.Instance
}

// NewTerminalTransport creates an interactive transport.
func NewTerminalTransport() (*TerminalTransport, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &TerminalTransport{rl: rl}, nil
}

// Close releases the terminal.
func (t *TerminalTransport) Close() error {
	return t.rl.Close()
}

// RequestApproval renders the gate and reads y / n / a (always allow,
// test runs only) until a valid answer arrives.
func (t *TerminalTransport) RequestApproval(ctx context.Context, req Request) (Decision, error) {
	header := color.New(color.FgYellow, color.Bold)
	header.Printf("\n=== Approval required: %s ===\n", req.Kind)
	fmt.Printf("Mission: %s\n", req.MissionID)
	fmt.Printf("Action:  %s\n", req.Action)
	if req.Summary != "" {
		fmt.Printf("Summary: %s\n", req.Summary)
	}
	for _, d := range req.Details {
		fmt.Printf("  %s\n", d)
	}

	prompt := "Approve? [y/n]"
	if req.Kind == KindRunTests {
		prompt = "Approve? [y/n/a=always this session]"
	}

	for {
		line, err := t.readLine(ctx, prompt+" ")
		if err != nil {
			return Decision{}, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return Decision{Approved: true, DecidedBy: "user"}, nil
		case "n", "no":
			return Decision{Approved: false, DecidedBy: "user"}, nil
		case "a", "always":
			if req.Kind == KindRunTests {
				return Decision{Approved: true, DecidedBy: "user", AlwaysAllow: true}, nil
			}
		}
		color.Red("Unrecognized answer.")
	}
}

// ResolveDecision renders the bounded options and reads a choice by id
// or list position. Unsafe options require typed confirmation.
func (t *TerminalTransport) ResolveDecision(ctx context.Context, dp types.DecisionPoint) (types.DecisionResolution, error) {
	header := color.New(color.FgRed, color.Bold)
	header.Printf("\n=== Decision required: %s ===\n", dp.Title)
	if dp.Summary != "" {
		fmt.Println(dp.Summary)
	}
	for i, opt := range dp.Options {
		marker := " "
		if opt.Default {
			marker = "*"
		}
		fmt.Printf(" %s %d) %s [%s]\n", marker, i+1, opt.Label, opt.ID)
	}

	for {
		line, err := t.readLine(ctx, "Choose an option: ")
		if err != nil {
			return types.DecisionResolution{}, err
		}
		choice := strings.TrimSpace(line)
		opt := pickOption(dp, choice)
		if opt == nil {
			color.Red("No such option.")
			continue
		}
		if !opt.Safe {
			confirm, err := t.readLine(ctx, fmt.Sprintf("%q may lose work. Type the option id to confirm: ", opt.Label))
			if err != nil {
				return types.DecisionResolution{}, err
			}
			if strings.TrimSpace(confirm) != opt.ID {
				color.Red("Not confirmed.")
				continue
			}
		}
		res := types.DecisionResolution{DecisionID: dp.ID, OptionID: opt.ID}
		if opt.Action == types.DecisionProvideInfo {
			info, err := t.readLine(ctx, "Enter the requested information: ")
			if err != nil {
				return types.DecisionResolution{}, err
			}
			res.FreeText = strings.TrimSpace(info)
		}
		return res, nil
	}
}

func pickOption(dp types.DecisionPoint, choice string) *types.DecisionOption {
	if choice == "" {
		return dp.DefaultOption()
	}
	if opt := dp.Option(choice); opt != nil {
		return opt
	}
	for i := range dp.Options {
		if fmt.Sprintf("%d", i+1) == choice {
			return &dp.Options[i]
		}
	}
	return nil
}

// readLine reads one line, honoring context cancellation between
// prompts. readline itself blocks; cancellation takes effect at the
// next prompt boundary, which is acceptable for an interactive surface.
func (t *TerminalTransport) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", fmt.Errorf("approval prompt interrupted: %w", err)
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return line, nil
}
