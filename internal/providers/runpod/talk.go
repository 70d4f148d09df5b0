package runpod

import (
	"context"

	"stella/internal/jobs"
	"stella/internal/providers/payload"
)

// Node ids in the talking-head ComfyUI graph. The worker resolves the rest
// of the graph itself; we only inject the caller-supplied inputs.
const (
	talkImageNode  = "737" // easy loadImageBase64
	talkSpeechNode = "250" // ElevenlabsTextToSpeech
)

// DefaultTalkVoiceID is used when the caller does not pick a voice.
const DefaultTalkVoiceID = "gdMFOufuI36UmxNKJhtv"

// TalkInput builds the workflow-graph input for the talking-head endpoint.
// imageBase64 must be bare base64 with the data-URI prefix stripped; the
// worker rejects the graph otherwise.
func TalkInput(imageBase64, speechText, voiceID string) map[string]any {
	if voiceID == "" {
		voiceID = DefaultTalkVoiceID
	}
	workflow := map[string]any{
		talkImageNode: map[string]any{
			"class_type": "easy loadImageBase64",
			"inputs": map[string]any{
				"base64_data": imageBase64,
			},
		},
		talkSpeechNode: map[string]any{
			"class_type": "ElevenlabsTextToSpeech",
			"inputs": map[string]any{
				"text":     speechText,
				"voice_id": voiceID,
			},
		},
	}
	return map[string]any{"workflow": workflow}
}

// TalkBackend adapts a client bound to the talking-head endpoint to the
// generic backend contract. The endpoint does not accept the flat input
// shape; every submission must go through the workflow graph, so slot
// submissions are translated here.
type TalkBackend struct {
	*Client
}

func (b TalkBackend) Submit(ctx context.Context, req jobs.Request) (jobs.Handle, error) {
	image := payload.EncodeImage(req.Slots["input_image"], payload.StripDataURIPrefix)
	input := TalkInput(image, req.Slots["speech_text"].Text, req.Slots["voice_id"].Text)
	return b.SubmitInput(ctx, input)
}

var _ jobs.Backend = TalkBackend{}
