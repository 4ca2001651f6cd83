package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go"

	"github.com/terra-femme/MedJournee/pkg/transcript"
)

const defaultModel = openai.ChatModelGPT4o

// GenerationError reports an LLM failure together with a rule-based
// fallback entry the caller can surface instead.
type GenerationError struct {
	Fallback *Entry
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("journal: generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces journal entries from conversation segments.
type Generator struct {
	client openai.Client
	model  openai.ChatModel
	logger *slog.Logger
	now    func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel overrides the chat model.
func WithModel(model openai.ChatModel) GeneratorOption {
	return func(g *Generator) {
		g.model = model
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithClock overrides the time source. Tests use this for stable
// visit dates.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a journal generator backed by an OpenAI client.
func NewGenerator(client openai.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client: client,
		model:  defaultModel,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// extraction mirrors the JSON shape the model is asked to produce.
type extraction struct {
	VisitType            string            `json:"visit_type"`
	ChiefComplaint       string            `json:"chief_complaint"`
	SymptomsMentioned    []string          `json:"symptoms_mentioned"`
	DiagnosesDiscussed   []string          `json:"diagnoses_discussed"`
	TreatmentsPrescribed []string          `json:"treatments_prescribed"`
	Medications          []Medication      `json:"medications"`
	VitalSigns           map[string]string `json:"vital_signs"`
	TestResults          []TestResult      `json:"test_results"`
	FollowUpInstructions []string          `json:"follow_up_instructions"`
	NextAppointments     []Appointment     `json:"next_appointments"`
	PatientQuestions     []string          `json:"patient_questions"`
	FamilyConcerns       []string          `json:"family_concerns"`
	ActionItems          []string          `json:"action_items"`
}

// Generate converts the segment list into a structured entry. On LLM
// failure it returns a *GenerationError carrying a basic fallback
// narrative; the session layer decides whether to surface it.
func (g *Generator) Generate(ctx context.Context, segments []transcript.Segment, patient PatientInfo) (*Entry, error) {
	providerText, patientText := separateSpeakers(segments)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You extract structured medical visit information from conversations. Respond with JSON only. Only include information actually mentioned."),
			openai.UserMessage(extractionPrompt(providerText, patientText, patient)),
		},
	})
	if err != nil {
		g.logger.Warn("journal extraction call failed", "error", err)
		return nil, &GenerationError{Fallback: g.fallbackEntry(segments), Err: err}
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices in completion")
		return nil, &GenerationError{Fallback: g.fallbackEntry(segments), Err: err}
	}

	var ex extraction
	if err := unmarshalLenient([]byte(resp.Choices[0].Message.Content), &ex); err != nil {
		g.logger.Warn("journal extraction returned unparseable JSON", "error", err)
		return nil, &GenerationError{Fallback: g.fallbackEntry(segments), Err: err}
	}

	entry := g.entryFromExtraction(ex, segments)
	return entry, nil
}

func (g *Generator) entryFromExtraction(ex extraction, segments []transcript.Segment) *Entry {
	now := g.now()
	entry := &Entry{
		EntryType:            "medical_visit",
		VisitDate:            now.Format("2006-01-02"),
		Provider:             "Healthcare Provider",
		VisitType:            ex.VisitType,
		ChiefComplaint:       ex.ChiefComplaint,
		Symptoms:             ex.SymptomsMentioned,
		Diagnoses:            ex.DiagnosesDiscussed,
		Treatments:           ex.TreatmentsPrescribed,
		Medications:          ex.Medications,
		VitalSigns:           ex.VitalSigns,
		TestResults:          ex.TestResults,
		FollowUpInstructions: ex.FollowUpInstructions,
		NextAppointments:     ex.NextAppointments,
		ActionItems:          ex.ActionItems,
		PatientQuestions:     ex.PatientQuestions,
		FamilyConcerns:       ex.FamilyConcerns,
		TermsExplained:       explainTerms(segments),
		GeneratedAt:          now,
		SegmentsProcessed:    len(segments),
	}
	if entry.VisitType == "" {
		entry.VisitType = "medical visit"
	}
	entry.Summary = visitSummary(entry)
	entry.Confidence = confidence(entry)
	return entry
}

// fallbackEntry builds a basic narrative when the model cannot.
func (g *Generator) fallbackEntry(segments []transcript.Segment) *Entry {
	var texts []string
	for _, seg := range segments {
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	narrative := strings.Join(texts, " ")
	if len(narrative) > 500 {
		narrative = narrative[:500] + "..."
	}

	now := g.now()
	return &Entry{
		EntryType:         "medical_visit_basic",
		VisitDate:         now.Format("2006-01-02"),
		Provider:          "Healthcare Provider",
		VisitType:         "medical visit",
		Summary:           fmt.Sprintf("Medical visit - %d conversation segments processed. %s", len(segments), narrative),
		Confidence:        0.5,
		GeneratedAt:       now,
		SegmentsProcessed: len(segments),
		Fallback:          true,
	}
}

// separateSpeakers splits the conversation into provider and
// patient/family transcripts by resolved role.
func separateSpeakers(segments []transcript.Segment) (provider, patient string) {
	var providerLines, patientLines []string
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if seg.Role == transcript.RolePatientFamily {
			patientLines = append(patientLines, seg.Text)
			continue
		}
		providerLines = append(providerLines, seg.Text)
	}
	return strings.Join(providerLines, "\n"), strings.Join(patientLines, "\n")
}

func extractionPrompt(providerText, patientText string, patient PatientInfo) string {
	var b strings.Builder
	if patient != (PatientInfo{}) {
		info, _ := json.Marshal(patient)
		fmt.Fprintf(&b, "Patient info: %s\n\n", info)
	}
	b.WriteString("MEDICAL VISIT CONVERSATION:\n\n")
	fmt.Fprintf(&b, "Healthcare Provider Statements:\n%s\n\n", providerText)
	fmt.Fprintf(&b, "Patient/Family Statements:\n%s\n\n", patientText)
	b.WriteString(`EXTRACT the following information and format as JSON:

{
    "visit_type": "routine checkup/follow-up/urgent care/emergency/consultation",
    "chief_complaint": "main reason for visit",
    "symptoms_mentioned": ["symptom1"],
    "diagnoses_discussed": ["diagnosis1"],
    "treatments_prescribed": ["treatment1"],
    "medications": [{"name": "medication name", "dosage": "amount", "frequency": "how often", "duration": "how long"}],
    "vital_signs": {"blood_pressure": "value", "temperature": "value", "weight": "value"},
    "test_results": [{"test_name": "test", "result": "result", "date": "date"}],
    "follow_up_instructions": ["instruction1"],
    "next_appointments": [{"type": "appointment type", "date": "when", "provider": "who"}],
    "patient_questions": ["question1"],
    "family_concerns": ["concern1"],
    "action_items": ["action1"]
}

Focus on actionable medical information, medication details, and follow-up care in clear, family-friendly language. Only include information that was actually mentioned in the conversation.`)
	return b.String()
}

func visitSummary(entry *Entry) string {
	var parts []string
	if entry.ChiefComplaint != "" {
		parts = append(parts, "Visit was for: "+entry.ChiefComplaint)
	}
	if len(entry.Diagnoses) > 0 {
		parts = append(parts, "Doctor discussed: "+strings.Join(entry.Diagnoses, ", "))
	}
	if len(entry.Treatments) > 0 {
		parts = append(parts, "Recommended treatments: "+strings.Join(entry.Treatments, ", "))
	}
	if len(entry.FollowUpInstructions) > 0 {
		parts = append(parts, "Follow-up: "+strings.Join(entry.FollowUpInstructions, "; "))
	}
	if len(parts) == 0 {
		return "Medical visit recorded."
	}
	return strings.Join(parts, ". ") + "."
}

// confidence scores how much actionable information was extracted.
func confidence(entry *Entry) float64 {
	score := 0.5
	if entry.ChiefComplaint != "" {
		score += 0.1
	}
	if len(entry.Diagnoses) > 0 {
		score += 0.1
	}
	if len(entry.Treatments) > 0 {
		score += 0.1
	}
	if len(entry.Medications) > 0 {
		score += 0.1
	}
	if len(entry.FollowUpInstructions) > 0 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// unmarshalLenient unmarshals model output, repairing malformed JSON
// before giving up.
func unmarshalLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return repairErr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
