package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tabletop/internal/log"
	"github.com/teslashibe/go-tabletop/pkg/inference"
	"github.com/teslashibe/go-tabletop/pkg/tabletop"
)

func newOCRCommand(g *globalFlags) *cobra.Command {
	var translate bool

	cmd := &cobra.Command{
		Use:   "ocr FILE...",
		Short: "Extract text from local images",
		Args:  cobra.RangeArgs(1, inference.MaxImages),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			images, err := readImages(args)
			if err != nil {
				return err
			}

			client, err := tabletop.NewInferenceClient(cfg, log.L())
			if err != nil {
				return err
			}
			defer client.Close()

			req := &inference.TranscribeRequest{Images: images}
			var resp *inference.TextResponse
			if translate {
				resp, err = inference.TranscribeAndTranslate(cmd.Context(), client, req)
			} else {
				resp, err = client.Transcribe(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&translate, "translate", false, "translate the extracted text")
	return cmd
}

// readImages loads files and sniffs their media type.
func readImages(paths []string) ([]inference.Image, error) {
	images := make([]inference.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		images = append(images, inference.Image{
			Data:     data,
			MIMEType: inference.DetectMIME("", data),
			Filename: filepath.Base(path),
		})
	}
	return images, inference.ValidateImages(images)
}
