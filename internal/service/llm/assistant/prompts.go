package assistant

import (
	"context"
	"fmt"
	"strings"

	"planwise/internal/config"
	"planwise/internal/domain/models/planning"
	domainllm "planwise/internal/domain/services/llm"
	"planwise/internal/workflow"
)

// maxContextDocumentRunes bounds each official document quoted into a prompt
const maxContextDocumentRunes = 12000

const draftInstruction = "Write the complete document for this step now, based on our conversation."

// projectContext is what later steps learn from earlier ones: the project
// itself and the official documents of the steps before the current one.
type projectContext struct {
	project   *planning.Project
	officials []planning.Document
}

// loadContext reads the project and the official documents of steps before
// step. Everything quoted into the prompt is user-authored, so it is screened
// like a chat message.
func (s *service) loadContext(ctx context.Context, projectID string, step int) (*projectContext, error) {
	project, err := s.store.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	officials, err := s.store.Documents.ListOfficial(ctx, projectID)
	if err != nil {
		return nil, err
	}

	screened := *project
	if screened.Description, err = s.checkInput("project description", project.Description); err != nil {
		return nil, err
	}

	pc := &projectContext{project: &screened}
	for i := range officials {
		if officials[i].WorkflowStep >= step {
			continue
		}
		doc, err := s.screenDocument(&officials[i])
		if err != nil {
			return nil, err
		}
		pc.officials = append(pc.officials, *doc)
	}
	return pc, nil
}

// screenDocument returns a copy of doc with its title and content cleaned,
// or a ValidationError naming the document when either is high risk.
func (s *service) screenDocument(doc *planning.Document) (*planning.Document, error) {
	field := fmt.Sprintf("document %q (step %d)", doc.Title, doc.WorkflowStep)
	title, err := s.checkInput(field, doc.Title)
	if err != nil {
		return nil, err
	}
	content, err := s.checkInput(field, doc.Content)
	if err != nil {
		return nil, err
	}
	screened := *doc
	screened.Title = title
	screened.Content = content
	return &screened, nil
}

// chatSystemPrompt frames a conversation about one workflow step
func (s *service) chatSystemPrompt(step *workflow.Step, pc *projectContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a planning assistant helping a team work through step %d of %d, %q.\n\n",
		step.Number, workflow.StepCount, step.Title)
	b.WriteString(step.Guidance)
	b.WriteString("\n\nThe document for this step will cover:\n")
	writeOutline(&b, step.Outline)
	b.WriteString("\nAsk focused questions, keep answers short, and stay consistent with the approved decisions below.\n")
	s.writeProjectContext(&b, pc)
	return b.String()
}

// draftSystemPrompt asks for the step's document as Markdown
func (s *service) draftSystemPrompt(step *workflow.Step, pc *projectContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You write the %q document (step %d of %d) of a project plan.\n\n",
		step.Title, step.Number, workflow.StepCount)
	b.WriteString(step.Guidance)
	b.WriteString("\n\nUse exactly these sections, in order, as level-two headings:\n")
	writeOutline(&b, step.Outline)
	b.WriteString("\nStart with a single level-one heading holding the document title. ")
	b.WriteString("Reply with Markdown only, no preamble. Do not contradict the approved documents below.\n")
	s.writeProjectContext(&b, pc)
	return b.String()
}

func writeOutline(b *strings.Builder, outline []string) {
	for i, section := range outline {
		fmt.Fprintf(b, "%d. %s\n", i+1, section)
	}
}

func (s *service) writeProjectContext(b *strings.Builder, pc *projectContext) {
	fmt.Fprintf(b, "\nProject: %s\n", pc.project.Name)
	if pc.project.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", pc.project.Description)
	}
	if len(pc.officials) == 0 {
		return
	}
	b.WriteString("\nApproved documents from earlier steps:\n")
	for i := range pc.officials {
		s.writeDocument(b, &pc.officials[i])
	}
}

// writeDocument quotes a document inside tags. A closing tag inside the
// content is broken up so the quote cannot be ended early.
func (s *service) writeDocument(b *strings.Builder, doc *planning.Document) {
	title := fmt.Sprintf("step %d", doc.WorkflowStep)
	if step, err := s.steps.Get(doc.WorkflowStep); err == nil {
		title = step.Title
	}
	content := doc.Content
	if clipped := clipRunes(content, maxContextDocumentRunes); clipped != content {
		content = clipped + "\n[truncated]"
	}
	content = strings.ReplaceAll(content, "</document", "< /document")
	fmt.Fprintf(b, "<document id=%q step=\"%d\" step_title=%q title=%q>\n%s\n</document>\n",
		doc.ID, doc.WorkflowStep, title, doc.Title, content)
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// buildMessages converts the shared log into provider messages. Consecutive
// turns of the same role (a user turn whose reply failed, or two members
// writing at once) are merged since providers expect alternating roles.
// trailing, when set, is appended as a final user instruction.
func buildMessages(turns []planning.ConversationTurn, trailing string) []domainllm.Message {
	messages := make([]domainllm.Message, 0, len(turns)+1)
	add := func(role, text string) {
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Text += "\n\n" + text
			return
		}
		messages = append(messages, domainllm.Message{Role: role, Text: text})
	}

	for _, turn := range turns {
		if turn.IsAssistant() {
			if len(messages) == 0 {
				// the provider expects the user to speak first
				continue
			}
			add(domainllm.RoleAssistant, turn.Content)
			continue
		}
		add(domainllm.RoleUser, turn.Content)
	}
	if trailing != "" {
		add(domainllm.RoleUser, trailing)
	}
	return messages
}

// splitDraft takes the document title from a leading level-one heading,
// falling back to the step title.
func splitDraft(text, fallbackTitle string) (title, content string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	if heading, ok := strings.CutPrefix(strings.TrimSpace(first), "# "); ok && strings.TrimSpace(heading) != "" {
		return clipRunes(strings.TrimSpace(heading), config.MaxDocumentTitleLength), strings.TrimSpace(rest)
	}
	return fallbackTitle, text
}
