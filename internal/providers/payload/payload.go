// Package payload translates canonical job slots into provider request
// fields. Providers disagree on whether binary inputs carry the data-URI
// prefix; sending the wrong shape produces a silent 500 or validation
// error upstream, so the choice is explicit at every call site.
package payload

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"stella/internal/jobs"
)

// Encoding selects the wire shape for binary slots.
type Encoding int

const (
	// KeepDataURIPrefix encodes images as data:<mime>;base64,<data>.
	KeepDataURIPrefix Encoding = iota
	// StripDataURIPrefix encodes images as bare base64.
	StripDataURIPrefix
)

// Inputs maps named slots to a flat provider input object.
func Inputs(slots map[string]jobs.SlotValue, enc Encoding) map[string]any {
	inputs := make(map[string]any, len(slots))
	for name, slot := range slots {
		switch slot.Kind {
		case jobs.SlotImage:
			inputs[name] = EncodeImage(slot, enc)
		case jobs.SlotNumber:
			inputs[name] = slot.Number
		default:
			inputs[name] = slot.Text
		}
	}
	return inputs
}

// EncodeImage encodes one image slot per the requested shape.
func EncodeImage(slot jobs.SlotValue, enc Encoding) string {
	data := base64.StdEncoding.EncodeToString(slot.Data)
	if enc == StripDataURIPrefix {
		return data
	}
	return "data:" + SniffMIME(slot) + ";base64," + data
}

// SniffMIME returns the slot's declared MIME type, falling back to content
// sniffing when the upload came without a usable one.
func SniffMIME(slot jobs.SlotValue) string {
	mime := strings.TrimSpace(slot.MIME)
	if mime != "" && mime != "application/octet-stream" {
		return mime
	}
	return mimetype.Detect(slot.Data).String()
}
