package tts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/podgen/podgen/internal/dialogue"
)

// MockPollyClient is a mock implementation of the Polly API client
type MockPollyClient struct {
	mock.Mock
}

func (m *MockPollyClient) DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error) {
	args := m.Called(ctx, params)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*polly.DescribeVoicesOutput), args.Error(1)
}

func (m *MockPollyClient) SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	args := m.Called(ctx, params)
	result := args.Get(0)
	if result == nil {
		return nil, args.Error(1)
	}
	return result.(*polly.SynthesizeSpeechOutput), args.Error(1)
}

func TestPollyProviderName(t *testing.T) {
	provider := &PollyProvider{}
	assert.Equal(t, "polly", provider.Name())
}

func TestPollySynthesize(t *testing.T) {
	mockClient := new(MockPollyClient)
	provider := &PollyProvider{client: mockClient, region: "us-east-1"}

	audio := io.NopCloser(strings.NewReader("pcm-bytes"))
	mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(in *polly.SynthesizeSpeechInput) bool {
		return string(in.VoiceId) == "Zhiyu" &&
			in.OutputFormat == types.OutputFormatPcm &&
			in.TextType == types.TextTypeText &&
			aws.ToString(in.SampleRate) == "16000"
	})).Return(&polly.SynthesizeSpeechOutput{AudioStream: audio}, nil)

	stream, err := provider.Synthesize(context.Background(), "你好", &SynthesizeOptions{
		Voice:      "Zhiyu",
		Format:     "wav",
		SampleRate: 16000,
	})
	require.NoError(t, err)
	defer stream.Close()

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "pcm-bytes", string(got))
	mockClient.AssertExpectations(t)
}

func TestPollySynthesizeDetectsSSML(t *testing.T) {
	mockClient := new(MockPollyClient)
	provider := &PollyProvider{client: mockClient}

	mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(in *polly.SynthesizeSpeechInput) bool {
		return in.TextType == types.TextTypeSsml
	})).Return(&polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader("x")),
	}, nil)

	params, _ := MoodFor(dialogue.EmotionAngry)
	ssml := ProsodySSML("生气的话。", params)

	stream, err := provider.Synthesize(context.Background(), ssml, &SynthesizeOptions{Format: "mp3"})
	require.NoError(t, err)
	stream.Close()
	mockClient.AssertExpectations(t)
}

func TestPollySynthesizeWrapsProsody(t *testing.T) {
	mockClient := new(MockPollyClient)
	provider := &PollyProvider{client: mockClient}

	mockClient.On("SynthesizeSpeech", mock.Anything, mock.MatchedBy(func(in *polly.SynthesizeSpeechInput) bool {
		return in.TextType == types.TextTypeSsml &&
			strings.Contains(aws.ToString(in.Text), `rate="120%"`)
	})).Return(&polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(strings.NewReader("x")),
	}, nil)

	stream, err := provider.Synthesize(context.Background(), "快点说。", &SynthesizeOptions{
		Format: "mp3",
		Speed:  1.2,
		Pitch:  8,
		Volume: 1.1,
	})
	require.NoError(t, err)
	stream.Close()
	mockClient.AssertExpectations(t)
}

func TestPollySynthesizeUnsupportedFormat(t *testing.T) {
	provider := &PollyProvider{client: new(MockPollyClient)}

	_, err := provider.Synthesize(context.Background(), "你好", &SynthesizeOptions{Format: "flac"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestPollyListVoices(t *testing.T) {
	mockClient := new(MockPollyClient)
	provider := &PollyProvider{client: mockClient}

	mockClient.On("DescribeVoices", mock.Anything, mock.Anything).Return(&polly.DescribeVoicesOutput{
		Voices: []types.Voice{
			{
				Id:               types.VoiceId("Zhiyu"),
				Name:             aws.String("Zhiyu"),
				LanguageCode:     types.LanguageCode("cmn-CN"),
				Gender:           types.GenderFemale,
				SupportedEngines: []types.Engine{types.EngineNeural},
			},
		},
	}, nil)

	voices, err := provider.ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Zhiyu", voices[0].ID)
	assert.Equal(t, "female", voices[0].Gender)
	assert.Contains(t, voices[0].Description, "neural")
}

func TestPollyIsAvailable(t *testing.T) {
	mockClient := new(MockPollyClient)
	provider := &PollyProvider{client: mockClient}

	mockClient.On("DescribeVoices", mock.Anything, mock.Anything).Return(nil, errors.New("no credentials"))
	assert.False(t, provider.IsAvailable(context.Background()))
}
