package models

import "fmt"

// Story is a reading story document
type Story struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Category          string   `json:"category"`
	PdfURL            string   `json:"pdfUrl"`
	GeneratedSynopsis string   `json:"generatedSynopsis,omitempty"`
	PageImages        []string `json:"pageImages,omitempty"`
}

// QuizScore fields
const (
	FieldStoryID = "storyId"
)

// StoryBlobPrefixes returns the storage prefixes owned by a story. The exact
// strings are shared with the web and mobile clients.
func StoryBlobPrefixes(storyID string) []string {
	return []string{
		fmt.Sprintf("stories/%s", storyID),
		fmt.Sprintf("story_pdfs/%s", storyID),
		fmt.Sprintf("story_pages/%s/", storyID),
		fmt.Sprintf("story_tts/%s/", storyID),
		fmt.Sprintf("assessment_images/%s/", storyID),
		fmt.Sprintf("assessment_audio/%s/", storyID),
	}
}

// TTSObjectPath returns the storage path for synthesized audio
func TTSObjectPath(fileName string) string {
	return fmt.Sprintf("tts/%s.mp3", fileName)
}

// PublicObjectURL returns the public URL of an object made world-readable
func PublicObjectURL(bucket, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, path)
}
