// =====================================
// File: internal/scenario/scenario.go
// =====================================
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the kind of a scenario step.
type Action string

const (
	ActionCreate    Action = "create"
	ActionBuy       Action = "buy"
	ActionSell      Action = "sell"
	ActionQuote     Action = "quote"
	ActionAdvance   Action = "advance"
	ActionSetParams Action = "set_params"
	ActionAirdrop   Action = "airdrop"
)

// Scenario is a scripted run against a fresh program.
type Scenario struct {
	Name string `yaml:"name"`
	// StartTime is the initial settlement clock reading (unix seconds).
	StartTime int64 `yaml:"start_time"`
	// Accounts maps labels to starting lamport balances.
	Accounts map[string]Amount `yaml:"accounts"`
	// Authority labels the global authority account.
	Authority string `yaml:"authority"`
	// FeeReceiver labels the fee receiver account.
	FeeReceiver string `yaml:"fee_receiver"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action. Fields irrelevant to the action are ignored.
type Step struct {
	Action Action `yaml:"action"`
	Curve  string `yaml:"curve"`
	User   string `yaml:"user"`
	// Amount is lamports for buys and airdrops, token base units for sells.
	// Sells also accept "all".
	Amount  Amount `yaml:"amount"`
	MinOut  Amount `yaml:"min_out"`
	Seconds int64  `yaml:"seconds"`
	Slots   int64  `yaml:"slots"`

	Name        string `yaml:"name"`
	Symbol      string `yaml:"symbol"`
	URI         string `yaml:"uri"`
	Whitelisted *bool  `yaml:"whitelisted"`
	StartOffset *int64 `yaml:"start_offset"`

	Status           string  `yaml:"status"`
	WhitelistEnabled *bool   `yaml:"whitelist_enabled"`
	InitialRealToken *Amount `yaml:"initial_real_token_reserves"`

	// ExpectError names the error the step must fail with (see ErrorNames).
	ExpectError string `yaml:"expect_error"`
}

// Amount is a u64 that also accepts underscores, "all" and a "sol" suffix
// (e.g. "1.5sol") in YAML.
type Amount struct {
	Value uint64
	All   bool
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseAmount(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = parsed
	return nil
}

// ParseAmount parses "1_000", "all" or "0.5sol".
func ParseAmount(raw string) (Amount, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "all" {
		return Amount{All: true}, nil
	}
	s = strings.ReplaceAll(s, "_", "")
	if strings.HasSuffix(s, "sol") {
		return parseSol(strings.TrimSpace(strings.TrimSuffix(s, "sol")))
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q", raw)
	}
	return Amount{Value: v}, nil
}

func parseSol(s string) (Amount, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 9 {
		return Amount{}, fmt.Errorf("invalid SOL amount %q: more than 9 decimals", s)
	}
	frac += strings.Repeat("0", 9-len(frac))
	if whole == "" {
		whole = "0"
	}
	v, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid SOL amount %q", s)
	}
	return Amount{Value: v}, nil
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Steps) == 0 {
		return errors.New("scenario has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		if step.ExpectError != "" {
			if _, ok := ErrorNames[step.ExpectError]; !ok {
				return fmt.Errorf("step %d: unknown expect_error %q", i+1, step.ExpectError)
			}
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Action {
	case ActionCreate:
		if st.Curve == "" || st.User == "" {
			return errors.New("curve and user are required")
		}
	case ActionBuy, ActionSell, ActionQuote:
		if st.Curve == "" {
			return errors.New("curve is required")
		}
		if st.Action != ActionQuote && st.User == "" {
			return errors.New("user is required")
		}
		if st.Amount.All && st.Action != ActionSell {
			return errors.New(`"all" is only valid for sells`)
		}
	case ActionAdvance:
		if st.Seconds < 0 || st.Slots < 0 {
			return errors.New("time cannot move backwards")
		}
	case ActionSetParams:
	case ActionAirdrop:
		if st.User == "" {
			return errors.New("user is required")
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}
