package web

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tabletop/pkg/voice"
)

func (s *Server) handleConnect(c *fiber.Ctx) error {
	if err := s.voice.Connect(c.UserContext()); err != nil {
		s.logger.Error("voice connect failed", "request_id", requestID(c), "error", err)
		if errors.Is(err, voice.ErrChannelUnavailable) {
			return fail(c, fiber.StatusInternalServerError, err.Error())
		}
		return fail(c, fiber.StatusInternalServerError, "Failed to connect to Discord voice channel")
	}
	return ok(c, "Connected to Discord voice channel.")
}

func (s *Server) handleDisconnect(c *fiber.Ctx) error {
	if err := s.voice.Disconnect(); err != nil {
		// The handle is released either way.
		s.logger.Warn("voice disconnect reported an error", "error", err)
	}
	return ok(c, "Disconnected from Discord.")
}

func (s *Server) handlePlay(c *fiber.Ctx) error {
	files := uploadedFiles(c)
	if len(files) == 0 {
		return fail(c, fiber.StatusBadRequest, "No audio file provided")
	}
	file := files[0]

	if !isAllowedAudioType(file.Header.Get(fiber.HeaderContentType)) {
		return fail(c, fiber.StatusBadRequest, "Invalid file type. Only MP3, WAV, and OGG are supported.")
	}
	if file.Size > MaxUploadBytes {
		return errTooLarge
	}

	data, err := readUpload(file)
	if err != nil {
		return err
	}

	id, err := s.voice.Play(c.UserContext(), bytes.NewReader(data))
	if err != nil {
		s.logger.Error("failed to play audio", "file", file.Filename, "request_id", requestID(c), "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to play audio")
	}

	s.logger.Info("playing upload", "file", file.Filename, "bytes", len(data), "playback", id)
	return ok(c, "Now playing "+file.Filename)
}

func (s *Server) handlePause(c *fiber.Ctx) error {
	s.voice.Pause()
	return ok(c, "Audio paused")
}

func (s *Server) handleUnpause(c *fiber.Ctx) error {
	s.voice.Resume()
	return ok(c, "Audio unpaused")
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.voice.Stop()
	return ok(c, "Audio stopped")
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": s.voice.Status(),
		"player": s.voice.PlayerStatus(),
	})
}

func (s *Server) handleDiscordHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "discord"})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	if s.metrics == nil {
		return c.JSON(fiber.Map{"current": nil, "average": nil, "history": []voice.Metrics{}})
	}
	return c.JSON(fiber.Map{
		"current": s.metrics.Current(),
		"average": s.metrics.Average(),
		"history": s.metrics.History(),
	})
}
