package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/saga/onboarding/internal/wizard"
)

func newTestModel(t *testing.T, submit SubmitFunc) (Model, *wizard.Engine, *wizard.MemoryStore) {
	t.Helper()
	store := wizard.NewMemoryStore(nil)
	e, err := wizard.New(context.Background(), wizard.DefaultCatalog(), store)
	require.NoError(t, err)
	if submit == nil {
		submit = func(context.Context, wizard.Payload) error { return nil }
	}
	return New(context.Background(), e, submit), e, store
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m, cmd = next.(Model), c
	}
	return m, cmd
}

// completeQuestionnaire walks every step with the keyboard
func completeQuestionnaire(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = press(t, m, "right", "enter") // 1
	m, _ = press(t, m, "enter")          // 2
	m, _ = press(t, m, "right", "enter") // 3: career -> 2
	m, _ = press(t, m, "enter", "enter") // 4, 5
	m, _ = press(t, m, "space", "enter") // 6
	m, _ = press(t, m, "down", "space", "enter")
	m, _ = press(t, m, "enter", "enter", "enter") // 8, 9, 10
	m, _ = press(t, m, "space", "enter")          // 11
	return m
}

func TestModel_ScalarArrowsUpdateAnswer(t *testing.T) {
	m, e, store := newTestModel(t, nil)

	m, _ = press(t, m, "right", "right", "right")

	assert.Equal(t, wizard.ScalarRating(5), e.State().Answers[1])
	assert.NotNil(t, store.Snapshot())
	assert.Contains(t, m.View(), "Step 1 of 11")
}

func TestModel_GatedStepBlocksAdvance(t *testing.T) {
	m, e, _ := newTestModel(t, nil)

	m, _ = press(t, m, "enter", "enter") // onto step 3
	require.Equal(t, 3, e.State().CurrentStep)

	m, _ = press(t, m, "enter")
	assert.Equal(t, 3, e.State().CurrentStep)
	assert.Contains(t, m.message, "selection")
}

func TestModel_RetreatKey(t *testing.T) {
	m, e, _ := newTestModel(t, nil)

	m, _ = press(t, m, "enter", "b")
	assert.Equal(t, 1, e.State().CurrentStep)
	_ = m
}

func TestModel_SubmitOnceAndReset(t *testing.T) {
	var calls int
	var got wizard.Payload
	m, e, store := newTestModel(t, func(ctx context.Context, p wizard.Payload) error {
		calls++
		got = p
		return nil
	})

	m = completeQuestionnaire(t, m)
	require.True(t, e.State().Completed)

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.True(t, m.submitting)

	// Keys are ignored while the submission is in flight.
	m, _ = press(t, m, "enter")

	next, quit := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, calls)
	assert.True(t, m.submitted)
	assert.NotNil(t, quit)
	assert.Equal(t, wizard.MeetingVirtual, got["meeting_format"])
	assert.Empty(t, e.State().Answers)
	assert.Nil(t, store.Snapshot())
}

func TestModel_SubmitFailureKeepsAnswers(t *testing.T) {
	m, e, _ := newTestModel(t, func(context.Context, wizard.Payload) error {
		return errors.New("502 bad gateway")
	})

	m = completeQuestionnaire(t, m)
	m, cmd := press(t, m, "enter")
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.False(t, m.submitted)
	assert.False(t, m.submitting)
	assert.Contains(t, m.message, "Submission failed")
	assert.NotEmpty(t, e.State().Answers)
}

func TestModel_GoalLimit(t *testing.T) {
	m, e, _ := newTestModel(t, nil)
	ctx := context.Background()
	for _, g := range []string{"grow_career", "find_cofounder", "learn_skill", "expand_network"} {
		require.NoError(t, e.ToggleChoice(ctx, 11, g))
	}
	for e.State().CurrentStep < 11 {
		require.NoError(t, e.Advance(ctx))
	}

	m, _ = press(t, m, "down", "down", "down", "down", "space")
	assert.Contains(t, m.message, "up to 4")
}
