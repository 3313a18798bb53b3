package content

// Category classifies a meditation session.
type Category string

const (
	CategorySleep     Category = "Sleep"
	CategoryStress    Category = "Stress"
	CategoryFocus     Category = "Focus"
	CategoryShort     Category = "Short"
	CategoryDeep      Category = "Deep"
	CategoryBreathing Category = "Breathing"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySleep, CategoryStress, CategoryFocus, CategoryShort, CategoryDeep, CategoryBreathing:
		return true
	}
	return false
}

// Session is one guided meditation as published by the catalog. Immutable once
// fetched. Either audio URL may be empty; a missing track simply does not play.
type Session struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Description     string   `json:"description" yaml:"description"`
	DurationMinutes int      `json:"duration" yaml:"duration"`
	Category        Category `json:"category" yaml:"category"`
	Difficulty      string   `json:"difficulty" yaml:"difficulty"`
	CoverImageURL   string   `json:"imageUrl" yaml:"image_url"`
	AmbientURL      string   `json:"audioUrl" yaml:"audio_url"`
	VoiceURL        string   `json:"voiceUrl" yaml:"voice_url"`
}

// TotalSeconds returns the nominal session length in seconds.
func (s Session) TotalSeconds() int {
	return s.DurationMinutes * 60
}
