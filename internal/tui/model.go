// Package tui is the interactive terminal front end of the onboarding
// questionnaire. It drives a wizard.Engine and renders its progress with a
// bubbles progress bar.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forgo/saga/onboarding/internal/wizard"
)

// SubmitFunc delivers a completed payload. It is called once per user
// request; failures are shown and never retried automatically.
type SubmitFunc func(ctx context.Context, payload wizard.Payload) error

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	styleSubtitle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	stylePrompt   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	styleSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type submitResultMsg struct{ err error }

// Model is the bubbletea model of the questionnaire
type Model struct {
	ctx        context.Context
	engine     *wizard.Engine
	submit     SubmitFunc
	progress   progress.Model
	cursor     int
	message    string
	submitting bool
	submitted  bool
	cancelled  bool
	width      int
}

// New creates a model over engine
func New(ctx context.Context, engine *wizard.Engine, submit SubmitFunc) Model {
	return Model{
		ctx:      ctx,
		engine:   engine,
		submit:   submit,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Run shows the questionnaire until the user submits or quits. It reports
// whether a submission succeeded.
func Run(ctx context.Context, engine *wizard.Engine, submit SubmitFunc) (bool, error) {
	prog := tea.NewProgram(New(ctx, engine, submit), tea.WithAltScreen(), tea.WithContext(ctx))
	result, err := prog.Run()
	if err != nil {
		return false, err
	}
	final, ok := result.(Model)
	if !ok {
		return false, fmt.Errorf("wizard failed to return results")
	}
	return final.submitted, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil

	case submitResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.message = "Submission failed: " + msg.err.Error() + " (press enter to try again)"
			return m, nil
		}
		m.submitted = true
		if err := m.engine.Reset(m.ctx); err != nil {
			m.message = "Profile saved, but the local session could not be cleared: " + err.Error()
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "ctrl+r":
			m.message = ""
			m.cursor = 0
			m.report(m.engine.Reset(m.ctx))
			return m, nil
		}
		if m.engine.State().Completed {
			if msg.String() == "enter" {
				return m.startSubmit()
			}
			return m, nil
		}
		return m.handleStepKey(msg.String())
	}
	return m, nil
}

func (m Model) handleStepKey(key string) (tea.Model, tea.Cmd) {
	state := m.engine.State()
	step, _ := m.engine.Catalog().Step(state.CurrentStep)
	m.message = ""

	switch key {
	case "enter", "n", "tab":
		if !m.engine.CanAdvance(step.Number) {
			m.message = "Please make a selection to continue."
			return m, nil
		}
		m.cursor = 0
		m.report(m.engine.Advance(m.ctx))
	case "backspace", "b", "shift+tab":
		m.cursor = 0
		m.report(m.engine.Retreat(m.ctx))
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(step.Options)-1 {
			m.cursor++
		}
	case "left", "h":
		m.adjust(step, state, -1)
	case "right", "l":
		m.adjust(step, state, 1)
	case " ", "x":
		m.choose(step)
	}
	return m, nil
}

// adjust moves a scalar rating, or the focused category rating, by delta
func (m *Model) adjust(step wizard.Step, state wizard.State, delta int) {
	switch step.Kind {
	case wizard.KindScalar:
		v := scalarValue(step, state.Answers[step.Number]) + delta
		if !step.InRange(v) {
			return
		}
		m.report(m.engine.UpdateAnswer(m.ctx, step.Number, wizard.ScalarRating(v)))
	case wizard.KindCategory:
		opt := step.Options[m.cursor]
		v := categoryValue(step, state.Answers[step.Number], opt.Key) + delta
		if !step.InRange(v) {
			return
		}
		m.report(m.engine.RateCategory(m.ctx, step.Number, opt.Key, v))
	}
}

// choose selects the focused option of a single-choice step or toggles it
// on a multi-choice step
func (m *Model) choose(step wizard.Step) {
	if len(step.Options) == 0 {
		return
	}
	key := step.Options[m.cursor].Key
	switch step.Kind {
	case wizard.KindSingle:
		m.report(m.engine.UpdateAnswer(m.ctx, step.Number, wizard.SingleChoice(key)))
	case wizard.KindMulti:
		m.report(m.engine.ToggleChoice(m.ctx, step.Number, key))
	}
}

func (m Model) startSubmit() (tea.Model, tea.Cmd) {
	payload, err := m.engine.BuildSubmissionPayload()
	if err != nil {
		var missing *wizard.MissingFieldsError
		if errors.As(err, &missing) {
			m.message = "Please answer every question before submitting: " + strings.Join(slices.Concat(missing.Fields, missing.Invalid), ", ")
		} else {
			m.message = err.Error()
		}
		return m, nil
	}

	m.submitting = true
	m.message = ""
	ctx, submit := m.ctx, m.submit
	return m, func() tea.Msg {
		return submitResultMsg{err: submit(ctx, payload)}
	}
}

func (m *Model) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, wizard.ErrSelectionLimit):
		m.message = fmt.Sprintf("You can pick up to %d.", wizard.MaxGoals)
	case errors.Is(err, wizard.ErrElevationLimit):
		m.message = fmt.Sprintf("You can rate up to %d areas above the minimum.", wizard.MaxElevatedInterests)
	default:
		m.message = err.Error()
	}
}

func (m Model) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	state := m.engine.State()
	pct := float64(m.engine.CompletionPercentage()) / 100

	var sb strings.Builder
	sb.WriteString(m.progress.ViewAs(pct) + "\n\n")

	if state.Completed {
		sb.WriteString(styleTitle.Render("All done!") + "\n\n")
		if m.submitting {
			sb.WriteString(styleSubtitle.Render("Saving your profile...") + "\n")
		} else {
			sb.WriteString(stylePrompt.Render("Press Enter to submit, ctrl+r to start over, q to quit.") + "\n")
		}
		return sb.String() + m.footer()
	}

	step, _ := m.engine.Catalog().Step(state.CurrentStep)
	sb.WriteString(styleSubtitle.Render(fmt.Sprintf("Step %d of %d", state.CurrentStep, state.TotalSteps)) + "\n")
	sb.WriteString(styleTitle.Render(step.Title) + "\n")
	sb.WriteString(step.Prompt + "\n\n")
	sb.WriteString(renderStep(step, state.Answers[step.Number], m.cursor))
	sb.WriteString("\n" + stylePrompt.Render(hint(step)) + "\n")
	return sb.String() + m.footer()
}

func (m Model) footer() string {
	if m.message == "" {
		return ""
	}
	if m.submitted {
		return "\n" + styleSuccess.Render(m.message) + "\n"
	}
	return "\n" + styleError.Render(m.message) + "\n"
}

func renderStep(step wizard.Step, answer wizard.Answer, cursor int) string {
	var sb strings.Builder
	switch step.Kind {
	case wizard.KindScalar:
		v := scalarValue(step, answer)
		sb.WriteString(fmt.Sprintf("%s  %s  %s\n", step.MinLabel, scale(step, v), step.MaxLabel))
	case wizard.KindCategory:
		for i, opt := range step.Options {
			line := fmt.Sprintf("%-20s %s", opt.Label, scale(step, categoryValue(step, answer, opt.Key)))
			sb.WriteString(pointer(i == cursor, line) + "\n")
		}
	case wizard.KindSingle:
		selected, _ := answer.(wizard.SingleChoice)
		for i, opt := range step.Options {
			sb.WriteString(pointer(i == cursor, radio(string(selected) == opt.Key)+" "+opt.Label) + "\n")
		}
	case wizard.KindMulti:
		selected, _ := answer.(wizard.MultiChoice)
		for i, opt := range step.Options {
			sb.WriteString(pointer(i == cursor, checkbox(selected.Contains(opt.Key))+" "+opt.Label) + "\n")
		}
	}
	return sb.String()
}

func hint(step wizard.Step) string {
	switch step.Kind {
	case wizard.KindScalar:
		return "←/→ rate · enter next · b back"
	case wizard.KindCategory:
		return "↑/↓ move · ←/→ rate · enter next · b back"
	default:
		return "↑/↓ move · space select · enter next · b back"
	}
}

func scale(step wizard.Step, v int) string {
	var sb strings.Builder
	for i := step.Min; i <= step.Max; i++ {
		if i == v {
			sb.WriteString(styleSelected.Render(fmt.Sprintf("[%d]", i)))
		} else {
			sb.WriteString(fmt.Sprintf(" %d ", i))
		}
	}
	return sb.String()
}

func pointer(focused bool, line string) string {
	if focused {
		return styleSelected.Render("> " + line)
	}
	return "  " + line
}

func radio(on bool) string {
	if on {
		return "(•)"
	}
	return "( )"
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func scalarValue(step wizard.Step, a wizard.Answer) int {
	if v, ok := a.(wizard.ScalarRating); ok {
		return int(v)
	}
	return step.Default
}

func categoryValue(step wizard.Step, a wizard.Answer, key string) int {
	if ratings, ok := a.(wizard.CategoryRatings); ok {
		if v, ok := ratings[key]; ok {
			return v
		}
	}
	return step.Default
}
