package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tabletop/pkg/tts"
)

type ttsPlayRequest struct {
	Text          *string                    `json:"text"`
	VoiceID       string                     `json:"voiceId"`
	VoiceSettings *tts.VoiceSettingsOverride `json:"voiceSettings"`
}

// handleTTSPlay synthesizes text and plays it into the voice channel.
// The voice is checked before any synthesis call.
func (s *Server) handleTTSPlay(c *fiber.Ctx) error {
	var req ttsPlayRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "body must be a JSON object")
	}
	if req.Text == nil {
		return fail(c, fiber.StatusBadRequest, "body must have required property 'text'")
	}

	voiceID, err := tts.ValidateVoice(req.VoiceID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	synth := &tts.Request{Text: *req.Text, VoiceID: voiceID}
	if req.VoiceSettings != nil {
		settings := req.VoiceSettings.Apply(tts.DefaultVoiceSettings())
		synth.Settings = &settings
	}

	// The stream outlives the request; playback reads it after we respond.
	ctx := context.WithoutCancel(c.UserContext())

	stream, err := s.tts.Stream(ctx, synth)
	if err != nil {
		if errors.Is(err, tts.ErrUnsupportedVoice) || errors.Is(err, tts.ErrEmptyText) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		s.logger.Error("speech synthesis failed",
			"voice", voiceID,
			"class", tts.ErrorClass(err),
			"request_id", requestID(c),
			"error", err,
		)
		return fail(c, fiber.StatusInternalServerError, "Failed to synthesize speech")
	}

	id, err := s.voice.Play(ctx, stream)
	if err != nil {
		stream.Close()
		s.logger.Error("failed to play speech", "request_id", requestID(c), "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to play audio")
	}

	s.logger.Info("playing speech", "voice", voiceID, "chars", len(*req.Text), "playback", id)
	return c.JSON(fiber.Map{"success": true, "text": *req.Text})
}

func (s *Server) handleVoices(c *fiber.Ctx) error {
	return c.JSON(tts.SupportedVoices)
}
