package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"easel/internal/runstore"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		dpi         int
		enhance     bool
		upscale     int
		mockups     bool
		video       bool
		texts       bool
		userContext string
		outputPath  string
		follow      bool
	)

	cmd := &cobra.Command{
		Use:   "process <image>",
		Short: "Process an image and download the result package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]
			image, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			api, err := ctx.apiClient()
			if err != nil {
				return err
			}

			opts := runstore.Options{
				DPI:     dpi,
				Enhance: enhance,
				Upscale: upscale,
				Mockups: mockups,
				Video:   video,
				Texts:   texts,
				Context: strings.TrimSpace(userContext),
			}

			// Allocate the run id client-side so the progress feed can be
			// followed while the upload is still processing.
			runID := uuid.NewString()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", runID)

			var wg sync.WaitGroup
			if follow {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = api.Watch(cmd.Context(), runID, func(event runEvent) {
						fmt.Fprintln(out, renderEvent(event))
					})
				}()
			}

			result, err := api.Process(cmd.Context(), runID, filepath.Base(imagePath), image, opts)
			if follow {
				wg.Wait()
			}
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
				target = stem + "-package.zip"
			}
			if err := os.WriteFile(target, result.Archive, 0o644); err != nil {
				return fmt.Errorf("write package: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s (%d bytes)\n", target, len(result.Archive))
			return nil
		},
	}

	cmd.Flags().IntVar(&dpi, "dpi", 300, "DPI stamped on the processed image")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Run resolution enhancement before packaging")
	cmd.Flags().IntVar(&upscale, "upscale", 2, "Upscale factor when enhancing (2 or 4)")
	cmd.Flags().BoolVar(&mockups, "mockups", false, "Compose scene mockups")
	cmd.Flags().BoolVar(&video, "video", false, "Render a preview video")
	cmd.Flags().BoolVar(&texts, "texts", false, "Generate marketplace listing texts")
	cmd.Flags().StringVar(&userContext, "context", "", "Extra context passed to text generation")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination for the result package")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "Print progress events while processing")
	return cmd
}
