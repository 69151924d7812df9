package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesseract-hub/kwentura-service/internal/models"
	"github.com/tesseract-hub/kwentura-service/internal/repository"
)

type fakeGenerator struct {
	out     string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.out, g.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	voice models.TTSConfig
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, text string, voice models.TTSConfig) ([]byte, error) {
	s.voice = voice
	return s.audio, s.err
}

func newContentService(f *fixture, gen *fakeGenerator, speech *fakeSynthesizer) *ContentService {
	svc := NewContentService(nil, nil, f.blobs, repository.NewSettingsRepository(f.store), f.stories, testLogger())
	if gen != nil {
		svc.generator = gen
	}
	if speech != nil {
		svc.speech = speech
	}
	return svc
}

func TestGenerateSynopsisSavesOnStory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "stories/X", map[string]interface{}{"title": "Alamat ng Pinya"})

	gen := &fakeGenerator{out: "Isang kuwento tungkol kay Pina."}
	svc := newContentService(f, gen, nil)

	resp, err := svc.GenerateSynopsis(ctx, "T1", models.GenerateTextRequest{Text: "Noong unang panahon...", StoryID: "X"})
	require.NoError(t, err)
	assert.Equal(t, gen.out, resp.Synopsis)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Noong unang panahon...")

	doc, err := f.mem.Get(ctx, "stories/X")
	require.NoError(t, err)
	assert.Equal(t, gen.out, doc.Data["generatedSynopsis"])
	assert.Equal(t, "Alamat ng Pinya", doc.Data["title"])
}

func TestGenerateSynopsisMissingStoryStillReturns(t *testing.T) {
	f := newFixture(t)
	svc := newContentService(f, &fakeGenerator{out: "summary"}, nil)

	resp, err := svc.GenerateSynopsis(context.Background(), "T1", models.GenerateTextRequest{Text: "text", StoryID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, "summary", resp.Synopsis)
	assert.False(t, f.exists(t, "stories/missing"))
}

func TestGenerateMoralQuiz(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{out: "```json\n" + `{"moralLesson":"Be honest","questions":[{"question":"What did Pina learn?","choices":["Honesty","Greed"],"answer":"Honesty"}]}` + "\n```"}
	svc := newContentService(f, gen, nil)

	resp, err := svc.GenerateMoralQuiz(context.Background(), "T1", models.GenerateTextRequest{Text: "story"})
	require.NoError(t, err)
	assert.Equal(t, "Be honest", resp.Quiz.MoralLesson)
	require.Len(t, resp.Quiz.Questions, 1)

	gen.out = "not json"
	_, err = svc.GenerateMoralQuiz(context.Background(), "T1", models.GenerateTextRequest{Text: "story"})
	requireKind(t, err, KindInternal)
}

func TestGenerateComprehensionQuestions(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{out: `[{"question":"Who is Pina?","choices":["A girl","A fruit","A dog"],"answer":"A girl"}]`}
	svc := newContentService(f, gen, nil)

	resp, err := svc.GenerateComprehensionQuestions(context.Background(), "T1", models.GenerateTextRequest{Text: "story"})
	require.NoError(t, err)
	require.Len(t, resp.Questions, 1)
	assert.Equal(t, "A girl", resp.Questions[0].Answer)

	gen.err = errors.New("quota exceeded")
	_, err = svc.GenerateComprehensionQuestions(context.Background(), "T1", models.GenerateTextRequest{Text: "story"})
	requireKind(t, err, KindInternal)
}

func TestContentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unconfigured := newContentService(f, nil, nil)
	_, err := unconfigured.GenerateSynopsis(ctx, "T1", models.GenerateTextRequest{Text: "story"})
	requireKind(t, err, KindFailedPrecondition)
	_, err = unconfigured.SynthesizeSpeech(ctx, "T1", models.SynthesizeSpeechRequest{Text: "hello", FileName: "intro"})
	requireKind(t, err, KindFailedPrecondition)

	svc := newContentService(f, &fakeGenerator{out: "x"}, &fakeSynthesizer{audio: []byte("mp3")})
	_, err = svc.GenerateSynopsis(ctx, "", models.GenerateTextRequest{Text: "story"})
	requireKind(t, err, KindUnauthenticated)
	_, err = svc.GenerateSynopsis(ctx, "T1", models.GenerateTextRequest{Text: "   "})
	requireKind(t, err, KindInvalidArgument)

	for _, name := range []string{"", "../secret", "a/b", `a\b`} {
		_, err = svc.SynthesizeSpeech(ctx, "T1", models.SynthesizeSpeechRequest{Text: "hello", FileName: name})
		requireKind(t, err, KindInvalidArgument)
	}
}

func TestSynthesizeSpeechPublishesAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "tts_config/default", map[string]interface{}{"voiceName": "fil-PH-Wavenet-B"})

	speech := &fakeSynthesizer{audio: []byte("ID3audio")}
	svc := newContentService(f, nil, speech)

	resp, err := svc.SynthesizeSpeech(ctx, "T1", models.SynthesizeSpeechRequest{Text: "Magandang umaga", FileName: "greeting"})
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/kwentura-test/tts/greeting.mp3", resp.AudioURL)
	assert.Equal(t, "fil-PH-Wavenet-B", speech.voice.VoiceName)
	assert.Equal(t, "fil-PH", speech.voice.LanguageCode)

	obj := f.blobs.Object("tts/greeting.mp3")
	require.NotNil(t, obj)
	assert.True(t, obj.Public)
	assert.Equal(t, "audio/mpeg", obj.ContentType)
	assert.True(t, strings.HasPrefix(string(obj.Data), "ID3"))
}

func TestSynthesizeSpeechFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	svc := newContentService(f, nil, &fakeSynthesizer{err: errors.New("deadline exceeded")})

	_, err := svc.SynthesizeSpeech(context.Background(), "T1", models.SynthesizeSpeechRequest{Text: "hello", FileName: "intro"})
	requireKind(t, err, KindInternal)
	assert.Nil(t, f.blobs.Object("tts/intro.mp3"))
}
