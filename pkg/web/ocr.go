package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-tabletop/pkg/inference"
)

func ocrFail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{"success": false, "error": message})
}

// handleOCR reads up to MaxImages images and returns their text. With
// ?translate=true the text is translated before it is returned.
func (s *Server) handleOCR(c *fiber.Ctx) error {
	files := uploadedFiles(c)
	if len(files) == 0 {
		return ocrFail(c, fiber.StatusBadRequest, "No file uploaded")
	}
	if len(files) > inference.MaxImages {
		return ocrFail(c, fiber.StatusBadRequest,
			fmt.Sprintf("Too many files. Maximum is %d.", inference.MaxImages))
	}

	images := make([]inference.Image, 0, len(files))
	for _, fh := range files {
		contentType := fh.Header.Get(fiber.HeaderContentType)
		if !inference.IsAllowedImageType(contentType) {
			return ocrFail(c, fiber.StatusBadRequest,
				"Invalid file type. Only JPEG, PNG, GIF, and WebP are supported.")
		}
		if fh.Size > MaxUploadBytes {
			return ocrFail(c, fiber.StatusBadRequest, errTooLarge.Message)
		}

		data, err := readUpload(fh)
		if errors.Is(err, errTooLarge) {
			return ocrFail(c, fiber.StatusBadRequest, errTooLarge.Message)
		}
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return ocrFail(c, fiber.StatusBadRequest, "No file uploaded")
		}

		images = append(images, inference.Image{
			Data:     data,
			MIMEType: inference.NormalizeMIME(contentType),
			Filename: fh.Filename,
		})
	}

	req := &inference.TranscribeRequest{Images: images}

	var (
		resp *inference.TextResponse
		err  error
	)
	if c.QueryBool("translate") {
		resp, err = inference.TranscribeAndTranslate(c.UserContext(), s.ocr, req)
	} else {
		resp, err = s.ocr.Transcribe(c.UserContext(), req)
	}
	if err != nil {
		if inference.IsValidation(err) {
			return ocrFail(c, fiber.StatusBadRequest, err.Error())
		}
		s.logger.Error("OCR processing error",
			"images", len(images),
			"class", inference.ErrorClass(err),
			"request_id", requestID(c),
			"error", err,
		)
		return ocrFail(c, fiber.StatusInternalServerError, "Failed to process image for OCR")
	}

	s.logger.Info("OCR finished",
		"images", len(images),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", resp.LatencyMs,
	)
	return c.JSON(fiber.Map{"success": true, "text": resp.Text})
}

func (s *Server) handleOCRHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": "ocr"})
}

type translateRequest struct {
	Text *string `json:"text"`
}

func (s *Server) handleTranslate(c *fiber.Ctx) error {
	var req translateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "body must be a JSON object")
	}
	if req.Text == nil {
		return fail(c, fiber.StatusBadRequest, "body must have required property 'text'")
	}

	resp, err := s.ocr.Translate(c.UserContext(), &inference.TranslateRequest{Text: *req.Text})
	if err != nil {
		if inference.IsValidation(err) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		s.logger.Error("translate failed", "class", inference.ErrorClass(err), "request_id", requestID(c), "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to translate text")
	}

	s.logger.Info("translate finished", "chars", len(resp.Text), "latency_ms", resp.LatencyMs)
	return c.JSON(fiber.Map{"status": "OK", "result": resp.Text})
}
