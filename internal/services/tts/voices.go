package tts

import (
	"errors"
	"strings"
)

// Gender values reported by the catalog.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// ErrNoVoices is returned when the catalog cannot supply a male and female voice.
var ErrNoVoices = errors.New("tts: no male and female voices available")

// Voice is one catalog entry.
type Voice struct {
	SpeakerID string `json:"speakerId"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Locale    string `json:"locale"`
}

// FindVoice returns the voice with the given speaker id.
func FindVoice(voices []Voice, speakerID string) (Voice, bool) {
	speakerID = strings.TrimSpace(speakerID)
	if speakerID == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if v.SpeakerID == speakerID {
			return v, true
		}
	}
	return Voice{}, false
}

// DefaultPair selects the first male voice as host 1 and the first female
// voice as host 2.
func DefaultPair(voices []Voice) (Voice, Voice, error) {
	var male, female *Voice
	for i := range voices {
		switch strings.ToLower(voices[i].Gender) {
		case GenderMale:
			if male == nil {
				male = &voices[i]
			}
		case GenderFemale:
			if female == nil {
				female = &voices[i]
			}
		}
	}
	if male == nil || female == nil {
		return Voice{}, Voice{}, ErrNoVoices
	}
	return *male, *female, nil
}

// ResolvePair picks host voices by id, falling back to the configured
// defaults and then to DefaultPair for any id that is empty or unknown.
func ResolvePair(voices []Voice, host1ID, host2ID string) (Voice, Voice, error) {
	defMale, defFemale, defErr := DefaultPair(voices)
	host1, ok1 := FindVoice(voices, host1ID)
	host2, ok2 := FindVoice(voices, host2ID)
	if (!ok1 || !ok2) && defErr != nil {
		return Voice{}, Voice{}, defErr
	}
	if !ok1 {
		host1 = defMale
	}
	if !ok2 {
		host2 = defFemale
	}
	return host1, host2, nil
}
