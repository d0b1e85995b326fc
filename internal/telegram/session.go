package telegram

import (
	"sync"

	"anonpair/backend/internal/models"
)

// Step is a state of the conversational wizards.
type Step string

const (
	StepIdle Step = ""

	StepProfileGender   Step = "profile_gender"
	StepProfileRegion   Step = "profile_region"
	StepProfileCountry  Step = "profile_country"
	StepProfileLanguage Step = "profile_language"

	StepSearchMenu  Step = "search_menu"
	StepSearchValue Step = "search_value"

	StepReportReason Step = "report_reason"
	StepUpgradeProof Step = "upgrade_proof"
)

// profileFlow is the order of the profile wizard and the field each step sets.
var profileFlow = []struct {
	step  Step
	field string
}{
	{StepProfileGender, models.FilterGender},
	{StepProfileRegion, models.FilterRegion},
	{StepProfileCountry, models.FilterCountry},
	{StepProfileLanguage, models.FilterLanguage},
}

// profileField returns the profile column the step fills.
func profileField(step Step) (string, bool) {
	for _, s := range profileFlow {
		if s.step == step {
			return s.field, true
		}
	}
	return "", false
}

// nextProfileStep returns the step after s, or StepIdle at the end.
func nextProfileStep(s Step) Step {
	for i, f := range profileFlow {
		if f.step == s && i+1 < len(profileFlow) {
			return profileFlow[i+1].step
		}
	}
	return StepIdle
}

// Search is a search being composed in the wizard.
type Search struct {
	Filters        models.SearchFilters
	RequirePremium bool
}

func (q Search) IsEmpty() bool {
	return q.Filters.IsEmpty() && !q.RequirePremium
}

// Session is one user's wizard state.
type Session struct {
	Step Step
	// Search holds the filters chosen so far.
	Search Search
	// Field is the filter awaiting a typed value in StepSearchValue.
	Field string
	// ReportRoom and ReportTarget are captured when /report starts so the
	// report survives the room closing before the reason arrives.
	ReportRoom   string
	ReportTarget int64
}

// Sessions holds wizard state per user. Only a user's own update stream
// touches their session.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]Session
	// last remembers each user's most recent search so /next repeats it.
	last map[int64]Search
}

func NewSessions() *Sessions {
	return &Sessions{
		m:    make(map[int64]Session),
		last: make(map[int64]Search),
	}
}

// Get returns the user's session; the zero Session is idle.
func (s *Sessions) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[userID]
}

func (s *Sessions) Set(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Step == StepIdle {
		delete(s.m, userID)
		return
	}
	s.m[userID] = sess
}

// Cancel resets the user to idle and reports whether a wizard was active.
func (s *Sessions) Cancel(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[userID]
	delete(s.m, userID)
	return ok
}

// Remember stores the user's last search.
func (s *Sessions) Remember(userID int64, q Search) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.IsEmpty() {
		delete(s.last, userID)
		return
	}
	s.last[userID] = q
}

func (s *Sessions) LastSearch(userID int64) Search {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[userID]
}
