package models

// TTSConfig holds voice settings read from tts_config/default
type TTSConfig struct {
	LanguageCode string  `json:"languageCode"`
	VoiceName    string  `json:"voiceName"`
	SsmlGender   string  `json:"ssmlGender"`
	SpeakingRate float64 `json:"speakingRate"`
}

// DefaultTTSConfig is used when no tts_config document exists
func DefaultTTSConfig() TTSConfig {
	return TTSConfig{
		LanguageCode: "fil-PH",
		VoiceName:    "fil-PH-Standard-A",
		SsmlGender:   "FEMALE",
		SpeakingRate: 0.9,
	}
}

// TTSConfigFromData overlays stored fields on the defaults
func TTSConfigFromData(data map[string]interface{}) TTSConfig {
	cfg := DefaultTTSConfig()
	if v := StringField(data, "languageCode"); v != "" {
		cfg.LanguageCode = v
	}
	if v := StringField(data, "voiceName"); v != "" {
		cfg.VoiceName = v
	}
	if v := StringField(data, "ssmlGender"); v != "" {
		cfg.SsmlGender = v
	}
	switch rate := data["speakingRate"].(type) {
	case float64:
		cfg.SpeakingRate = rate
	case int64:
		cfg.SpeakingRate = float64(rate)
	case int:
		cfg.SpeakingRate = float64(rate)
	}
	return cfg
}

// QuizQuestion is a multiple choice question generated from story text
type QuizQuestion struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
	Answer   string   `json:"answer"`
}

// MoralQuiz is the moral-lesson quiz generated for a story
type MoralQuiz struct {
	MoralLesson string         `json:"moralLesson"`
	Questions   []QuizQuestion `json:"questions"`
}
