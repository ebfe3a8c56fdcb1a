package service

import (
	"fmt"
	"strings"
)

// Progress step identifiers reported by the workflow engine.
const (
	StepInitializing      = "initializing"
	StepExtractingContext = "extracting_context"
	StepGeneratingText    = "generating_text"
	StepGeneratingMedia   = "generating_media"
	StepSavingImage       = "saving_image"
	StepFinalizing        = "finalizing"
	StepCompleted         = "completed"
	StepError             = "error"
)

// stepDescriptions maps step identifiers to human message templates with
// named parameters.
var stepDescriptions = map[string]string{
	StepInitializing:      "Initializing post generation process...",
	StepExtractingContext: "Extracting content from source #{source_num}: {source_type}...",
	StepGeneratingText:    "Generating text variation #{variation_num}...",
	StepGeneratingMedia:   "Generating image variation #{variation_num} using prompt: {prompt}...",
	StepSavingImage:       "Saving generated image...",
	StepFinalizing:        "Finalizing post generation...",
	StepCompleted:         "Post generation completed successfully!",
	StepError:             "Error occurred: {error_message}",
}

// StepMessage renders the human message for a step. Unknown steps fall back
// to a generic description instead of erroring; missing parameters are left
// in place.
func StepMessage(step string, params map[string]string) string {
	template, ok := stepDescriptions[step]
	if !ok {
		return fmt.Sprintf("Processing step: %s", step)
	}

	msg := template
	for key, value := range params {
		msg = strings.ReplaceAll(msg, "{"+key+"}", value)
	}
	return msg
}

// ProgressSink receives ordered progress events for one post. Delivery is
// best-effort; the workflow engine never depends on it succeeding.
type ProgressSink interface {
	Send(step, message string)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(step, message string)

func (f SinkFunc) Send(step, message string) {
	f(step, message)
}

// NopSink discards all events.
var NopSink ProgressSink = SinkFunc(func(string, string) {})
