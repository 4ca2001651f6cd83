// Package journal turns a finished visit's role-labeled conversation
// into a structured medical journal entry using an LLM, with a
// rule-based fallback narrative when the model is unavailable.
package journal

import "time"

// Medication is one prescribed medication as mentioned in the visit.
type Medication struct {
	Name      string `json:"name" msgpack:"name"`
	Dosage    string `json:"dosage,omitempty" msgpack:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty" msgpack:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty" msgpack:"duration,omitempty"`
}

// Appointment is a scheduled follow-up.
type Appointment struct {
	Type     string `json:"type" msgpack:"type"`
	Date     string `json:"date,omitempty" msgpack:"date,omitempty"`
	Provider string `json:"provider,omitempty" msgpack:"provider,omitempty"`
}

// TestResult is one lab or diagnostic result discussed in the visit.
type TestResult struct {
	Name   string `json:"test_name" msgpack:"test_name"`
	Result string `json:"result,omitempty" msgpack:"result,omitempty"`
	Date   string `json:"date,omitempty" msgpack:"date,omitempty"`
}

// Entry is a structured journal entry for one medical visit. Only
// information actually mentioned in the conversation is included.
type Entry struct {
	EntryType      string `json:"entry_type" msgpack:"entry_type"`
	VisitDate      string `json:"visit_date" msgpack:"visit_date"`
	Provider       string `json:"provider" msgpack:"provider"`
	VisitType      string `json:"visit_type" msgpack:"visit_type"`
	ChiefComplaint string `json:"chief_complaint,omitempty" msgpack:"chief_complaint,omitempty"`

	Symptoms    []string          `json:"symptoms,omitempty" msgpack:"symptoms,omitempty"`
	Diagnoses   []string          `json:"diagnoses,omitempty" msgpack:"diagnoses,omitempty"`
	Treatments  []string          `json:"treatments,omitempty" msgpack:"treatments,omitempty"`
	Medications []Medication      `json:"medications,omitempty" msgpack:"medications,omitempty"`
	VitalSigns  map[string]string `json:"vital_signs,omitempty" msgpack:"vital_signs,omitempty"`
	TestResults []TestResult      `json:"test_results,omitempty" msgpack:"test_results,omitempty"`

	FollowUpInstructions []string      `json:"follow_up_instructions,omitempty" msgpack:"follow_up_instructions,omitempty"`
	NextAppointments     []Appointment `json:"next_appointments,omitempty" msgpack:"next_appointments,omitempty"`
	ActionItems          []string      `json:"action_items,omitempty" msgpack:"action_items,omitempty"`

	PatientQuestions []string          `json:"patient_questions,omitempty" msgpack:"patient_questions,omitempty"`
	FamilyConcerns   []string          `json:"family_concerns,omitempty" msgpack:"family_concerns,omitempty"`
	TermsExplained   map[string]string `json:"medical_terms_explained,omitempty" msgpack:"medical_terms_explained,omitempty"`

	Summary    string  `json:"summary" msgpack:"summary"`
	Confidence float64 `json:"confidence" msgpack:"confidence"`

	GeneratedAt       time.Time `json:"generated_at" msgpack:"generated_at"`
	SegmentsProcessed int       `json:"segments_processed" msgpack:"segments_processed"`

	// Fallback marks entries produced by the rule-based path after an
	// LLM failure.
	Fallback bool `json:"fallback,omitempty" msgpack:"fallback,omitempty"`
}

// PatientInfo is optional demographic context passed to the model.
type PatientInfo struct {
	Name              string `json:"name,omitempty"`
	FamilyID          string `json:"family_id,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}
