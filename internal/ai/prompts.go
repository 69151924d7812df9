package ai

import "fmt"

// maxInputChars bounds the story text placed in a prompt
const maxInputChars = 30000

func clip(text string) string {
	r := []rune(text)
	if len(r) > maxInputChars {
		return string(r[:maxInputChars])
	}
	return text
}

// SynopsisPrompt asks for a short child-friendly synopsis
func SynopsisPrompt(text string) string {
	return fmt.Sprintf(`You are helping teachers of young Filipino readers.
Write a synopsis of the following story in 3 to 5 simple sentences, in the same language as the story.
Do not add a title or any commentary.

Story:
%s`, clip(text))
}

// MoralQuizPrompt asks for the moral lesson and a multiple choice quiz as JSON
func MoralQuizPrompt(text string) string {
	return fmt.Sprintf(`Read the following children's story and identify its moral lesson.
Then write 5 multiple choice questions that check whether a young reader understood the moral lesson.
Use the same language as the story.
Respond with JSON only, exactly in this shape:
{"moralLesson": "...", "questions": [{"question": "...", "choices": ["...", "...", "...", "..."], "answer": "..."}]}
The answer must be copied exactly from one of the choices.

Story:
%s`, clip(text))
}

// ComprehensionPrompt asks for reading comprehension questions as JSON
func ComprehensionPrompt(text string) string {
	return fmt.Sprintf(`Write 5 reading comprehension questions for the following children's story.
Each question has 4 choices. Use the same language as the story.
Respond with a JSON array only, exactly in this shape:
[{"question": "...", "choices": ["...", "...", "...", "..."], "answer": "..."}]
The answer must be copied exactly from one of the choices.

Story:
%s`, clip(text))
}
