package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"github.com/tesseract-hub/kwentura-service/internal/models"
)

// maxChunkBytes stays under the 5000 byte input limit of the synthesize call
const maxChunkBytes = 4500

// SpeechSynthesizer turns text into MP3 audio
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice models.TTSConfig) ([]byte, error)
}

// TTSConfig holds Cloud Text-to-Speech client settings
type TTSConfig struct {
	CredentialsFile string
	CredentialsJSON string
	Endpoint        string
	Timeout         time.Duration
}

// TTSClient implements SpeechSynthesizer on Cloud Text-to-Speech
type TTSClient struct {
	service *texttospeech.Service
	timeout time.Duration
	logger  *logrus.Logger
}

// NewTTSClient creates a Text-to-Speech client
func NewTTSClient(ctx context.Context, cfg TTSConfig, logger *logrus.Logger, extra ...option.ClientOption) (*TTSClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	return &TTSClient{service: svc, timeout: cfg.Timeout, logger: logger}, nil
}

// Synthesize splits long text into chunks, synthesizes each and joins the MP3 frames
func (c *TTSClient) Synthesize(ctx context.Context, text string, voice models.TTSConfig) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chunks := SplitText(text, maxChunkBytes)
	if len(chunks) == 0 {
		return nil, errors.New("no text to synthesize")
	}

	var audio []byte
	for i, chunk := range chunks {
		req := &texttospeech.SynthesizeSpeechRequest{
			Input: &texttospeech.SynthesisInput{Text: chunk},
			Voice: &texttospeech.VoiceSelectionParams{
				LanguageCode: voice.LanguageCode,
				Name:         voice.VoiceName,
				SsmlGender:   voice.SsmlGender,
			},
			AudioConfig: &texttospeech.AudioConfig{
				AudioEncoding: "MP3",
				SpeakingRate:  voice.SpeakingRate,
			},
		}
		resp, err := c.service.Text.Synthesize(req).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
		if err != nil {
			return nil, fmt.Errorf("decode audio chunk %d: %w", i+1, err)
		}
		audio = append(audio, data...)
	}

	c.logger.WithFields(logrus.Fields{
		"chunks": len(chunks),
		"bytes":  len(audio),
		"voice":  voice.VoiceName,
	}).Debug("Speech synthesis completed")
	return audio, nil
}

// SplitText breaks text into pieces of at most maxBytes, preferring sentence
// and then word boundaries
func SplitText(text string, maxBytes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxBytes {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, sentence := range splitSentences(text) {
		if current.Len()+len(sentence) <= maxBytes {
			current.WriteString(sentence)
			continue
		}
		flush()
		if len(sentence) <= maxBytes {
			current.WriteString(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			if current.Len()+len(word)+1 > maxBytes {
				flush()
			}
			if len(word) > maxBytes {
				chunks = append(chunks, splitRunes(word, maxBytes)...)
				continue
			}
			current.WriteString(word)
			current.WriteByte(' ')
		}
	}
	flush()
	return chunks
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func splitRunes(word string, maxBytes int) []string {
	var out []string
	var current strings.Builder
	for _, r := range word {
		if current.Len()+len(string(r)) > maxBytes {
			out = append(out, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

var _ SpeechSynthesizer = (*TTSClient)(nil)
