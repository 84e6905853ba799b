package tts

import "fmt"

// Voice is a selectable ElevenLabs voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SupportedVoices is the fixed set of voices the service accepts.
// The first entry is the default.
var SupportedVoices = []Voice{
	{ID: "g8ZOdhoD9R6eYKPTjKbE", Name: "Tomasz Zborek"},
	{ID: "FF7KdobWPaiR0vkcALHF", Name: "Epic Trailer Voice"},
	{ID: "H5xTcsAIeS5RAykjz57a", Name: "Alex - Narrator"},
}

// DefaultVoice is used when a request names no voice.
var DefaultVoice = SupportedVoices[0]

// LookupVoice returns the supported voice with the given ID.
func LookupVoice(id string) (Voice, bool) {
	for _, v := range SupportedVoices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// ValidateVoice resolves an optional voice ID. Empty means DefaultVoice.
func ValidateVoice(id string) (string, error) {
	if id == "" {
		return DefaultVoice.ID, nil
	}
	if _, ok := LookupVoice(id); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedVoice, id)
	}
	return id, nil
}
