// Package narrative turns ledger aggregates into a short written summary.
//
// Only aggregate figures leave the process: per-employee and per-month
// totals plus the portfolio insights. Raw rows, clock times and notes are
// never placed in a prompt.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/warp/attendance-ledger/payroll"
)

var ErrNotConfigured = errors.New("narrative generator is not configured")

// Generator writes a narrative for one ledger.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
}

// =============================================================================
// PROMPT CONTEXT
// =============================================================================

type EmployeeFigures struct {
	Name            string `json:"name"`
	Rank            int    `json:"rank"`
	DaysWorked      int    `json:"days_worked"`
	PenaltyFreeDays int    `json:"penalty_free_days"`
	NetSalary       string `json:"net_salary"`
	Penalty         string `json:"penalty"`
	OTHours         string `json:"ot_hours"`
	Remaining       string `json:"remaining"`
}

type MonthFigures struct {
	Month      string `json:"month"`
	DaysWorked int    `json:"days_worked"`
	Net        string `json:"net"`
	Penalty    string `json:"penalty"`
}

// PromptContext is the aggregate-only view of a Result.
type PromptContext struct {
	From                string            `json:"from"`
	To                  string            `json:"to"`
	DaysWorked          int               `json:"days_worked"`
	NetOwed             string            `json:"net_owed"`
	Paid                string            `json:"paid"`
	Remaining           string            `json:"remaining"`
	Efficiency          string            `json:"efficiency"`
	MostReliable        string            `json:"most_reliable,omitempty"`
	TopLateOffender     string            `json:"top_late_offender,omitempty"`
	PenaltyRecoveryRate string            `json:"penalty_recovery_rate"`
	TotalOTHours        string            `json:"total_ot_hours"`
	FutureLiability     string            `json:"future_liability"`
	ShiftUsage          map[string]string `json:"shift_usage"`
	Employees           []EmployeeFigures `json:"employees"`
	Months              []MonthFigures    `json:"months"`
}

// NewPromptContext extracts the aggregates of res.
func NewPromptContext(res *payroll.Result) PromptContext {
	in := res.Insights
	pc := PromptContext{
		From:                res.DateRange.From,
		To:                  res.DateRange.To,
		DaysWorked:          res.Totals.DaysWorked,
		NetOwed:             res.Totals.NetOwed.StringFixed(2),
		Paid:                res.Totals.Paid.StringFixed(2),
		Remaining:           res.Totals.Remaining.StringFixed(2),
		Efficiency:          res.Efficiency.StringFixed(4),
		MostReliable:        in.MostReliable,
		TopLateOffender:     in.TopLateOffender,
		PenaltyRecoveryRate: in.PenaltyRecoveryRate.StringFixed(4),
		TotalOTHours:        in.TotalOTHours.StringFixed(2),
		FutureLiability:     in.FutureLiability.StringFixed(2),
		ShiftUsage:          make(map[string]string, len(in.ShiftUsage)),
		Employees:           make([]EmployeeFigures, 0, len(res.Employees)),
		Months:              make([]MonthFigures, 0, len(res.Months)),
	}
	for t, share := range in.ShiftUsage {
		pc.ShiftUsage[string(t)] = share.StringFixed(4)
	}
	for _, e := range res.Employees {
		pc.Employees = append(pc.Employees, EmployeeFigures{
			Name:            e.Name,
			Rank:            e.Rank,
			DaysWorked:      e.DaysWorked,
			PenaltyFreeDays: e.PenaltyFreeDays,
			NetSalary:       e.NetSalary.StringFixed(2),
			Penalty:         e.TotalPenalty.StringFixed(2),
			OTHours:         e.TotalOTHours.StringFixed(2),
			Remaining:       e.BalanceRemaining.StringFixed(2),
		})
	}
	for _, m := range res.Months {
		pc.Months = append(pc.Months, MonthFigures{
			Month:      m.Label,
			DaysWorked: m.DaysWorked,
			Net:        m.Net.StringFixed(2),
			Penalty:    m.Penalty.StringFixed(2),
		})
	}
	return pc
}

const systemPrompt = `You are a payroll analyst. You receive aggregated attendance and pay figures for one period as JSON.
Write a concise summary for a manager in at most three short paragraphs: overall cost and outstanding balance,
punctuality and who stands out, and one concrete recommendation. Use only the figures given. Do not invent numbers.`

// UserPrompt renders the context as the user message.
func UserPrompt(pc PromptContext) (string, error) {
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prompt context: %w", err)
	}
	return "Ledger figures:\n" + string(data), nil
}

// =============================================================================
// ANTHROPIC
// =============================================================================

const DefaultModel = "claude-sonnet-4-5"

type AnthropicGenerator struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropicGenerator returns a generator, or a Disabled one when no key is set.
func NewAnthropicGenerator(apiKey, model string, logger *slog.Logger) Generator {
	if apiKey == "" {
		return Disabled{}
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, pc PromptContext) (string, error) {
	userPrompt, err := UserPrompt(pc)
	if err != nil {
		return "", err
	}

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		g.logger.Warn("narrative generation failed", slog.String("model", g.model), slog.Any("error", err))
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			g.logger.Debug("narrative generated",
				slog.String("model", g.model),
				slog.Int64("tokens_in", message.Usage.InputTokens),
				slog.Int64("tokens_out", message.Usage.OutputTokens),
			)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in anthropic response")
}

// Disabled is used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, PromptContext) (string, error) {
	return "", ErrNotConfigured
}
