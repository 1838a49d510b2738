package curation

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qsurvey/internal/domain/survey"
	"qsurvey/internal/ports"
	"qsurvey/internal/usecase/surveygen"
)

// questionItem is one generated question with its curation state.
type questionItem struct {
	question survey.Question
	selected bool
}

type saveDoneMsg struct {
	project ports.SurveyProject
	err     error
}

type curationModel struct {
	ctx     context.Context
	service *surveygen.Service
	input   surveygen.GenerateInput
	result  surveygen.PipelineResult

	items         []questionItem
	selectedIndex int
	editing       bool
	editBuffer    string
	saving        bool
	saved         bool
	savedID       uint64
	status        string
}

// NewCurationModel presents the generated questions for review: toggle,
// reword, then persist the kept set.
func NewCurationModel(ctx context.Context, service *surveygen.Service, input surveygen.GenerateInput, result surveygen.PipelineResult) tea.Model {
	items := make([]questionItem, 0, len(result.Questions))
	for _, q := range result.Questions {
		items = append(items, questionItem{question: q, selected: true})
	}
	return &curationModel{
		ctx:     ctx,
		service: service,
		input:   input,
		result:  result,
		items:   items,
		status:  fmt.Sprintf("%d개 질문 생성됨", len(items)),
	}
}

func (m *curationModel) Init() tea.Cmd {
	return nil
}

func (m *curationModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case saveDoneMsg:
		m.saving = false
		if msg.err != nil {
			m.status = "저장 실패: " + msg.err.Error()
			return m, nil
		}
		m.saved = true
		m.savedID = msg.project.SurveyID
		m.status = fmt.Sprintf("저장 완료 (survey_id=%d)", msg.project.SurveyID)
		return m, tea.Quit
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m *curationModel) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.items)-1 {
			m.selectedIndex++
		}
	case " ":
		if len(m.items) > 0 {
			m.items[m.selectedIndex].selected = !m.items[m.selectedIndex].selected
		}
	case "e":
		if len(m.items) > 0 && m.items[m.selectedIndex].selected {
			m.editing = true
			m.editBuffer = m.items[m.selectedIndex].question.Text
		}
	case "s":
		if m.saving || m.saved {
			return m, nil
		}
		selected := m.selectedQuestions()
		if len(selected) == 0 {
			m.status = "선택된 질문이 없습니다"
			return m, nil
		}
		m.saving = true
		m.status = "저장 중..."
		return m, m.saveCmd(selected)
	}
	return m, nil
}

func (m *curationModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.editBuffer)
		if text != "" {
			m.items[m.selectedIndex].question.Text = text
		}
		m.editing = false
	case "esc":
		m.editing = false
	case "backspace":
		if m.editBuffer != "" {
			runes := []rune(m.editBuffer)
			m.editBuffer = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.editBuffer += string(msg.Runes)
		} else if msg.String() == " " {
			m.editBuffer += " "
		}
	}
	return m, nil
}

func (m *curationModel) selectedQuestions() []survey.Question {
	var selected []survey.Question
	for _, item := range m.items {
		if item.selected {
			selected = append(selected, item.question)
		}
	}
	return selected
}

func (m *curationModel) saveCmd(selected []survey.Question) tea.Cmd {
	ctx := m.ctx
	input := m.input
	result := m.result
	service := m.service
	return func() tea.Msg {
		project, err := service.SaveCuration(ctx, input, result, selected)
		return saveDoneMsg{project: project, err: err}
	}
}

func (m *curationModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("설문 질문 검토"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render("project=" + m.input.ProjectName))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Questions"))
	builder.WriteString("\n")
	if len(m.items) == 0 {
		builder.WriteString(dimStyle.Render("- no questions"))
		builder.WriteString("\n")
	}
	for index, item := range m.items {
		mark := "[ ]"
		if item.selected {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s [%s] %s", mark, item.question.Attribute, item.question.Text)
		if index == m.selectedIndex {
			builder.WriteString(selectedStyle.Render("> " + line))
		} else {
			builder.WriteString("  " + line)
		}
		builder.WriteString("\n")
	}

	if m.editing {
		builder.WriteString("\n")
		builder.WriteString(sectionStyle.Render("Edit"))
		builder.WriteString("\n")
		builder.WriteString(m.editBuffer + "▌")
		builder.WriteString("\n")
		builder.WriteString(dimStyle.Render("enter=확정 esc=취소"))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render("space=선택 e=수정 s=저장 q=종료"))
	builder.WriteString("\n")
	builder.WriteString("Status: " + m.status)
	builder.WriteString("\n")
	return builder.String()
}
